package appwrite

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/julianstephens/habitual/internal/backend"
)

// Databases is the document database service.
type Databases struct {
	client *Client
}

func documentsPath(databaseID, collectionID string) string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents", url.PathEscape(databaseID), url.PathEscape(collectionID))
}

func documentPath(databaseID, collectionID, documentID string) string {
	return documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
}

func (d *Databases) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	body := map[string]any{
		"documentId": documentID,
		"data":       data,
	}
	var doc json.RawMessage
	err := d.client.call(ctx, http.MethodPost, documentsPath(databaseID, collectionID), nil, body, &doc)
	return doc, err
}

func (d *Databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...backend.Query) (backend.DocumentList, error) {
	params := url.Values{}
	for _, q := range queries {
		params.Add("queries[]", q.String())
	}
	var list backend.DocumentList
	err := d.client.call(ctx, http.MethodGet, documentsPath(databaseID, collectionID), params, nil, &list)
	return list, err
}

func (d *Databases) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	body := map[string]any{"data": data}
	var doc json.RawMessage
	err := d.client.call(ctx, http.MethodPatch, documentPath(databaseID, collectionID, documentID), nil, body, &doc)
	return doc, err
}

func (d *Databases) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	return d.client.call(ctx, http.MethodDelete, documentPath(databaseID, collectionID, documentID), nil, nil, nil)
}
