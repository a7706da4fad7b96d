package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/habitual/internal/backend"
	"github.com/julianstephens/habitual/internal/constants"
	"github.com/julianstephens/habitual/internal/id"
)

// Databases is the local document database. Documents are private to the
// user who created them; anyone else gets a 404.
type Databases struct {
	p *Provider
}

type row struct {
	databaseID   string
	collectionID string
	id           string
	data         string
	createdAt    string
	updatedAt    string
}

func errDocumentNotFound() error {
	return backend.NewError(404, backend.TypeDocumentNotFound, "Document with the requested ID could not be found.")
}

// attributes converts a payload to a plain attribute map.
func attributes(data any) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	attrs := map[string]any{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, backend.NewError(400, "document_invalid_structure", "Invalid document structure: data must be an object")
	}
	for key := range attrs {
		if strings.HasPrefix(key, "$") {
			delete(attrs, key)
		}
	}
	return attrs, nil
}

// render builds the document as the hosted backend returns it.
func (r row) render() (json.RawMessage, error) {
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(r.data), &doc); err != nil {
		return nil, fmt.Errorf("decode stored document %s: %w", r.id, err)
	}
	doc["$id"] = r.id
	doc["$databaseId"] = r.databaseID
	doc["$collectionId"] = r.collectionID
	doc["$createdAt"] = metaStamp(r.createdAt)
	doc["$updatedAt"] = metaStamp(r.updatedAt)
	doc["$permissions"] = []string{}
	return json.Marshal(doc)
}

// recordChange queues a realtime event inside the mutation's transaction.
func (d *Databases) recordChange(ctx context.Context, tx *sql.Tx, owner string, r row, action backend.Action, doc json.RawMessage, now time.Time) error {
	ev := backend.NewDocumentEvent(r.databaseID, r.collectionID, r.id, action, doc, now)
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO changes (owner_id, event, created_at) VALUES (?, ?, ?)`,
		owner, string(data), stamp(now),
	); err != nil {
		return fmt.Errorf("failed to record change: %w", err)
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM changes WHERE created_at < ?`, stamp(now.Add(-constants.LocalChangeTTL)))
	return err
}

func (d *Databases) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	owner, err := d.p.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if documentID == "" || documentID == "unique()" {
		if documentID, err = id.Unique(); err != nil {
			return nil, err
		}
	}
	attrs, err := attributes(data)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}

	now := d.p.now()
	r := row{
		databaseID:   databaseID,
		collectionID: collectionID,
		id:           documentID,
		data:         string(body),
		createdAt:    stamp(now),
		updatedAt:    stamp(now),
	}
	doc, err := r.render()
	if err != nil {
		return nil, err
	}

	tx, err := d.p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE database_id = ? AND collection_id = ? AND id = ?`,
		databaseID, collectionID, documentID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check document: %w", err)
	}
	if exists > 0 {
		return nil, backend.NewError(409, backend.TypeDocumentAlreadyExists, "Document with the requested ID already exists. Try again with a different ID or use ID.unique() to generate a unique ID.")
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (database_id, collection_id, id, owner_id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.databaseID, r.collectionID, r.id, owner, r.data, r.createdAt, r.updatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	if err := d.recordChange(ctx, tx, owner, r, backend.ActionCreate, doc, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Databases) ListDocuments(ctx context.Context, databaseID, collectionID string, queries ...backend.Query) (backend.DocumentList, error) {
	owner, err := d.p.currentUser(ctx)
	if err != nil {
		return backend.DocumentList{}, err
	}
	c, err := compile(queries)
	if err != nil {
		return backend.DocumentList{}, err
	}

	stmt := `SELECT database_id, collection_id, id, data, created_at, updated_at FROM documents
		WHERE database_id = ? AND collection_id = ? AND owner_id = ?`
	args := []any{databaseID, collectionID, owner}
	for _, w := range c.where {
		stmt += " AND " + w
	}
	args = append(args, c.args...)
	stmt += " ORDER BY " + strings.Join(append(c.orderBy, "rowid ASC"), ", ")
	args = append(args, c.orderArgs...)

	rows, err := d.p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return backend.DocumentList{}, fmt.Errorf("failed to list documents: %w", err)
	}
	var matched []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.databaseID, &r.collectionID, &r.id, &r.data, &r.createdAt, &r.updatedAt); err != nil {
			rows.Close()
			return backend.DocumentList{}, fmt.Errorf("failed to scan document: %w", err)
		}
		matched = append(matched, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return backend.DocumentList{}, fmt.Errorf("failed to list documents: %w", err)
	}

	list := backend.DocumentList{Total: len(matched), Documents: []json.RawMessage{}}
	if len(matched) > c.limit {
		matched = matched[:c.limit]
	}
	for _, r := range matched {
		doc, err := r.render()
		if err != nil {
			return backend.DocumentList{}, err
		}
		list.Documents = append(list.Documents, doc)
	}
	return list, nil
}

// load fetches a document owned by owner inside tx.
func load(ctx context.Context, tx *sql.Tx, owner, databaseID, collectionID, documentID string) (row, error) {
	r := row{databaseID: databaseID, collectionID: collectionID, id: documentID}
	err := tx.QueryRowContext(ctx,
		`SELECT data, created_at, updated_at FROM documents
		WHERE database_id = ? AND collection_id = ? AND id = ? AND owner_id = ?`,
		databaseID, collectionID, documentID, owner,
	).Scan(&r.data, &r.createdAt, &r.updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, errDocumentNotFound()
	}
	if err != nil {
		return r, fmt.Errorf("failed to load document: %w", err)
	}
	return r, nil
}

func (d *Databases) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	owner, err := d.p.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	patch, err := attributes(data)
	if err != nil {
		return nil, err
	}

	tx, err := d.p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	r, err := load(ctx, tx, owner, databaseID, collectionID, documentID)
	if err != nil {
		return nil, err
	}
	attrs := map[string]any{}
	if err := json.Unmarshal([]byte(r.data), &attrs); err != nil {
		return nil, fmt.Errorf("decode stored document %s: %w", documentID, err)
	}
	for k, v := range patch {
		attrs[k] = v
	}
	body, err := json.Marshal(attrs)
	if err != nil {
		return nil, err
	}

	now := d.p.now()
	r.data = string(body)
	r.updatedAt = stamp(now)
	doc, err := r.render()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = ?, updated_at = ? WHERE database_id = ? AND collection_id = ? AND id = ?`,
		r.data, r.updatedAt, databaseID, collectionID, documentID,
	); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	if err := d.recordChange(ctx, tx, owner, r, backend.ActionUpdate, doc, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (d *Databases) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	owner, err := d.p.currentUser(ctx)
	if err != nil {
		return err
	}

	tx, err := d.p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r, err := load(ctx, tx, owner, databaseID, collectionID, documentID)
	if err != nil {
		return err
	}
	doc, err := r.render()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE database_id = ? AND collection_id = ? AND id = ?`,
		databaseID, collectionID, documentID,
	); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if err := d.recordChange(ctx, tx, owner, r, backend.ActionDelete, doc, d.p.now()); err != nil {
		return err
	}
	return tx.Commit()
}
