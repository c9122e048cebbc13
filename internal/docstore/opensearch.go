package docstore

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
)

// OpenSearchConfig holds the connection settings for an
// OpenSearch-compatible document store.
type OpenSearchConfig struct {
	URL                string
	Username           string
	Password           string
	InsecureSkipVerify bool
}

// OpenSearch talks to an OpenSearch-compatible server over its REST
// API. Request bodies are gzip-compressed.
type OpenSearch struct {
	base     string
	username string
	password string
	client   *http.Client
}

// NewOpenSearch creates a client for the given server.
func NewOpenSearch(cfg OpenSearchConfig) (*OpenSearch, error) {
	base := strings.TrimSuffix(cfg.URL, "/")
	if base == "" {
		return nil, fmt.Errorf("opensearch: server URL is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("opensearch: invalid server URL: %w", err)
	}

	transport := http.DefaultTransport
	if cfg.InsecureSkipVerify {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &OpenSearch{
		base:     base,
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Transport: transport, Timeout: 15 * time.Second},
	}, nil
}

// Close releases idle connections.
func (s *OpenSearch) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// do performs one REST call. A nil out discards the response body. The
// notFoundOK flag turns a 404 into (false, nil) instead of an error.
func (s *OpenSearch) do(ctx context.Context, method, path string, body any, out any, notFoundOK bool) (bool, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("encoding request: %w", err)
		}
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(raw); err != nil {
			return false, fmt.Errorf("compressing request: %w", err)
		}
		if err := zw.Close(); err != nil {
			return false, fmt.Errorf("compressing request: %w", err)
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, reader)
	if err != nil {
		return false, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Content-Encoding", "gzip")
	}
	if s.username != "" {
		req.SetBasicAuth(s.username, s.password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("document store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound && notFoundOK {
		return false, nil
	}
	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("document store returned %d: %s", resp.StatusCode, string(detail))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decoding response: %w", err)
		}
	}
	return true, nil
}

func docPath(index, id string) string {
	return "/" + url.PathEscape(index) + "/_doc/" + url.PathEscape(id)
}

// Put upserts the full document under (index, id), refreshing the index
// so the document is immediately searchable.
func (s *OpenSearch) Put(ctx context.Context, index, id string, doc any) error {
	_, err := s.do(ctx, http.MethodPut, docPath(index, id)+"?refresh=true", doc, nil, false)
	return err
}

// Get returns the document source, reporting absence via the found flag.
func (s *OpenSearch) Get(ctx context.Context, index, id string) (json.RawMessage, bool, error) {
	var envelope struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	ok, err := s.do(ctx, http.MethodGet, docPath(index, id), nil, &envelope, true)
	if err != nil {
		return nil, false, err
	}
	if !ok || !envelope.Found {
		return nil, false, nil
	}
	return envelope.Source, true, nil
}

// Search returns the sources of all documents matching the query.
func (s *OpenSearch) Search(ctx context.Context, index string, query Query) ([]json.RawMessage, error) {
	var clause any = map[string]any{"match_all": map[string]any{}}
	if len(query.Term) > 0 {
		term := make(map[string]any, len(query.Term))
		for field, value := range query.Term {
			term[field] = value
		}
		clause = map[string]any{"term": term}
	}
	body := map[string]any{"query": clause, "size": 1000}

	var envelope struct {
		Hits struct {
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	ok, err := s.do(ctx, http.MethodPost, "/"+url.PathEscape(index)+"/_search", body, &envelope, true)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Index does not exist yet: no documents.
		return nil, nil
	}

	docs := make([]json.RawMessage, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

// Update patches top-level fields of an existing document. A missing
// document is left missing.
func (s *OpenSearch) Update(ctx context.Context, index, id string, fields map[string]any) error {
	body := map[string]any{"doc": fields}
	path := "/" + url.PathEscape(index) + "/_update/" + url.PathEscape(id) + "?refresh=true"
	_, err := s.do(ctx, http.MethodPost, path, body, nil, true)
	return err
}

// Delete removes a document, ignoring absent ones.
func (s *OpenSearch) Delete(ctx context.Context, index, id string) error {
	_, err := s.do(ctx, http.MethodDelete, docPath(index, id)+"?refresh=true", nil, nil, true)
	return err
}
