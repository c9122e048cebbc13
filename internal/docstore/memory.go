package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-memory Store used by tests and by ephemeral runs that
// don't need durable state.
type Memory struct {
	mu      sync.RWMutex
	indexes map[string]map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{indexes: make(map[string]map[string]json.RawMessage)}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

// Put upserts the full document under (index, id).
func (m *Memory) Put(ctx context.Context, index, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", index, id, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexes[index] == nil {
		m.indexes[index] = make(map[string]json.RawMessage)
	}
	m.indexes[index][id] = body
	return nil
}

// Get returns the document body, reporting absence via the found flag.
func (m *Memory) Get(ctx context.Context, index, id string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.indexes[index][id]
	if !ok {
		return nil, false, nil
	}
	return body, true, nil
}

// Search returns all documents matching the query, in document-id order.
func (m *Memory) Search(ctx context.Context, index string, query Query) ([]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.indexes[index]))
	for id := range m.indexes[index] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var docs []json.RawMessage
	for _, id := range ids {
		body := m.indexes[index][id]
		if matches(body, query) {
			docs = append(docs, body)
		}
	}
	return docs, nil
}

func matches(body json.RawMessage, query Query) bool {
	if len(query.Term) == 0 {
		return true
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return false
	}
	for field, want := range query.Term {
		if fmt.Sprint(doc[field]) != want {
			return false
		}
	}
	return true
}

// Update patches top-level fields of an existing document. A missing
// document is left missing.
func (m *Memory) Update(ctx context.Context, index, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	body, ok := m.indexes[index][id]
	if !ok {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decoding document %s/%s: %w", index, id, err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document %s/%s: %w", index, id, err)
	}
	m.indexes[index][id] = merged
	return nil
}

// Delete removes a document, ignoring absent ones.
func (m *Memory) Delete(ctx context.Context, index, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexes[index], id)
	return nil
}
