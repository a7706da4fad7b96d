package appwrite

import (
	"github.com/julianstephens/habitual/internal/backend"
)

// Provider is the hosted backend.
type Provider struct {
	client    *Client
	account   *Account
	databases *Databases
	realtime  *Realtime
}

// New connects a provider to the project described by opts.
func New(opts Options) (*Provider, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &Provider{
		client:    client,
		account:   &Account{client: client},
		databases: &Databases{client: client},
		realtime:  newRealtime(client),
	}, nil
}

func (p *Provider) Account() backend.Account     { return p.account }
func (p *Provider) Databases() backend.Databases { return p.databases }
func (p *Provider) Realtime() backend.Realtime   { return p.realtime }

// Client exposes the underlying client, mainly for its session state.
func (p *Provider) Client() *Client { return p.client }

func (p *Provider) Close() error {
	p.realtime.Close()
	p.client.http.CloseIdleConnections()
	return nil
}
