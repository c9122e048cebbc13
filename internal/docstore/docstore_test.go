package docstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

type testDoc struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Count int    `json:"count"`
}

// backends builds one store per backend so every test runs against both.
func backends(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestPutGetDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Put(ctx, "docs", "d1", testDoc{Name: "pwn1", Owner: "T1"}); err != nil {
				t.Fatalf("Put: %v", err)
			}

			body, found, err := store.Get(ctx, "docs", "d1")
			if err != nil || !found {
				t.Fatalf("Get = (found=%v, err=%v)", found, err)
			}
			var doc testDoc
			if err := json.Unmarshal(body, &doc); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if doc.Name != "pwn1" || doc.Owner != "T1" {
				t.Errorf("doc = %+v", doc)
			}

			if _, found, err := store.Get(ctx, "docs", "missing"); err != nil || found {
				t.Errorf("Get(missing) = (found=%v, err=%v), want absent", found, err)
			}

			if err := store.Delete(ctx, "docs", "d1"); err != nil {
				t.Fatalf("Delete: %v", err)
			}
			if _, found, _ := store.Get(ctx, "docs", "d1"); found {
				t.Error("document survived Delete")
			}
			if err := store.Delete(ctx, "docs", "d1"); err != nil {
				t.Errorf("Delete of absent doc: %v", err)
			}
		})
	}
}

func TestPutReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "docs", "d1", testDoc{Name: "old", Count: 1})
			store.Put(ctx, "docs", "d1", testDoc{Name: "new"})

			body, _, err := store.Get(ctx, "docs", "d1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			var doc testDoc
			json.Unmarshal(body, &doc)
			if doc.Name != "new" || doc.Count != 0 {
				t.Errorf("doc = %+v, want full replacement", doc)
			}
		})
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "docs", "d1", testDoc{Name: "pwn1", Owner: "T1"})
			store.Put(ctx, "docs", "d2", testDoc{Name: "web1", Owner: "T1"})
			store.Put(ctx, "docs", "d3", testDoc{Name: "pwn1", Owner: "T2"})

			all, err := store.Search(ctx, "docs", MatchAll())
			if err != nil {
				t.Fatalf("Search(MatchAll): %v", err)
			}
			if len(all) != 3 {
				t.Errorf("MatchAll returned %d docs, want 3", len(all))
			}

			hits, err := store.Search(ctx, "docs", TermQuery("name", "pwn1"))
			if err != nil {
				t.Fatalf("Search(TermQuery): %v", err)
			}
			if len(hits) != 2 {
				t.Errorf("TermQuery(name=pwn1) returned %d docs, want 2", len(hits))
			}

			none, err := store.Search(ctx, "docs", TermQuery("name", "nope"))
			if err != nil || len(none) != 0 {
				t.Errorf("TermQuery(no match) = %d docs, err=%v", len(none), err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			store.Put(ctx, "docs", "d1", testDoc{Name: "pwn1", Owner: "T1", Count: 3})

			if err := store.Update(ctx, "docs", "d1", map[string]any{"name": "renamed"}); err != nil {
				t.Fatalf("Update: %v", err)
			}
			body, _, _ := store.Get(ctx, "docs", "d1")
			var doc testDoc
			json.Unmarshal(body, &doc)
			if doc.Name != "renamed" || doc.Owner != "T1" || doc.Count != 3 {
				t.Errorf("doc = %+v, want only name patched", doc)
			}

			// Patching a missing document leaves it missing.
			if err := store.Update(ctx, "docs", "missing", map[string]any{"name": "x"}); err != nil {
				t.Fatalf("Update(missing): %v", err)
			}
			if _, found, _ := store.Get(ctx, "docs", "missing"); found {
				t.Error("Update created a document")
			}
		})
	}
}
