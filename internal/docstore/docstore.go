// Package docstore provides the document-store client used to persist
// CTF state: JSON documents addressed by index and id, with exact-term
// search. Two backends exist, a local SQLite file and an
// OpenSearch-compatible HTTP server.
package docstore

import (
	"context"
	"encoding/json"
)

// Query selects documents within an index. An empty Term map matches
// every document.
type Query struct {
	// Term maps a top-level document field to the exact value it must
	// carry.
	Term map[string]string
}

// MatchAll returns a query that selects every document in an index.
func MatchAll() Query {
	return Query{}
}

// TermQuery returns a query matching documents whose field equals value.
func TermQuery(field, value string) Query {
	return Query{Term: map[string]string{field: value}}
}

// Store is the document-store surface the coordinator builds on.
// Put is a full-document upsert; there are no merge semantics. Get
// reports absence via the found flag rather than an error. Update
// patches top-level fields of an existing document and is a no-op when
// the document does not exist.
type Store interface {
	Put(ctx context.Context, index, id string, doc any) error
	Get(ctx context.Context, index, id string) (json.RawMessage, bool, error)
	Search(ctx context.Context, index string, query Query) ([]json.RawMessage, error)
	Update(ctx context.Context, index, id string, fields map[string]any) error
	Delete(ctx context.Context, index, id string) error
	Close() error
}
