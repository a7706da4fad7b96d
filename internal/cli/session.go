package cli

import (
	"errors"

	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/keyring"
)

type SessionCmd struct {
	Status SessionStatusCmd `cmd:"" help:"Show where the session is stored and whether it is valid." default:"1"`
	Clear  SessionClearCmd  `cmd:"" help:"Forget the stored session without contacting the backend."`
}

type SessionStatusCmd struct{}

func (cmd *SessionStatusCmd) Run(ctx *Context) error {
	if ctx.Keyring == nil {
		ctx.println("ℹ OS keyring is not available, the session lives only as long as the process")
	} else {
		ctx.printf("✓ OS keyring is available (entry %s%s)\n", constants.KeyringUserPrefix, ctx.Keyring.Account())
		secret, err := ctx.Keyring.Load()
		switch {
		case err != nil:
			ctx.printf("❌ Failed to read keyring: %v\n", err)
		case secret == "":
			ctx.println("ℹ No session stored")
		default:
			ctx.println("✓ Session stored")
		}
	}

	if identity, err := ctx.RequireIdentity(); err == nil {
		ctx.printf("✓ Logged in as %s\n", identity.Email)
	} else {
		ctx.println("ℹ Not logged in")
	}
	return nil
}

type SessionClearCmd struct{}

func (cmd *SessionClearCmd) Run(ctx *Context) error {
	if ctx.Keyring == nil {
		return errors.New("no session store to clear: " + keyring.ErrKeyringUnavailable.Error())
	}
	if err := ctx.Keyring.Clear(); err != nil {
		return err
	}
	ctx.println("✓ Stored session cleared")
	return nil
}
