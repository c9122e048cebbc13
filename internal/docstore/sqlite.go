package docstore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// SQLite stores documents as JSON rows in a local SQLite file. It is
// the default backend and keeps the bot runnable without an external
// search server.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if necessary creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Put upserts the full document under (index, id).
func (s *SQLite) Put(ctx context.Context, index, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", index, id, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (idx, doc_id, body, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(idx, doc_id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, index, id, string(body), time.Now().UTC().Format(time.RFC3339))
	return err
}

// Get returns the document body, reporting absence via the found flag.
func (s *SQLite) Get(ctx context.Context, index, id string) (json.RawMessage, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE idx = ? AND doc_id = ?", index, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return json.RawMessage(body), true, nil
}

// Search returns the bodies of all documents matching the query, in
// document-id order.
func (s *SQLite) Search(ctx context.Context, index string, query Query) ([]json.RawMessage, error) {
	clauses := []string{"idx = ?"}
	args := []any{index}
	for field, value := range query.Term {
		clauses = append(clauses, "json_extract(body, ?) = ?")
		args = append(args, "$."+field, value)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT body FROM documents WHERE "+strings.Join(clauses, " AND ")+" ORDER BY doc_id",
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		docs = append(docs, json.RawMessage(body))
	}
	return docs, rows.Err()
}

// Update patches top-level fields of an existing document. A missing
// document is left missing; the caller re-reads to observe the result.
func (s *SQLite) Update(ctx context.Context, index, id string, fields map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE idx = ? AND doc_id = ?", index, id,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("decoding document %s/%s: %w", index, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", index, id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET body = ?, updated_at = ? WHERE idx = ? AND doc_id = ?
	`, string(merged), time.Now().UTC().Format(time.RFC3339), index, id); err != nil {
		return err
	}
	return tx.Commit()
}

// Delete removes a document, ignoring absent ones.
func (s *SQLite) Delete(ctx context.Context, index, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE idx = ? AND doc_id = ?", index, id)
	return err
}
