package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
)

type stubExecutor struct {
	calls [][]string
	ids   []int
	stats index.Stats
}

func (s *stubExecutor) Stats() index.Stats { return s.stats }

func (s *stubExecutor) Query(terms []string) []int {
	s.calls = append(s.calls, terms)
	return s.ids
}

type stubCache struct {
	hit    []int
	err    error
	hits   int64
	misses int64
}

func (c *stubCache) GetOrCompute(_ context.Context, _ []string, compute func() ([]int, error)) ([]int, bool, error) {
	if c.err != nil {
		return nil, false, c.err
	}
	if c.hit != nil {
		return c.hit, true, nil
	}
	ids, err := compute()
	return ids, false, err
}

func (c *stubCache) Invalidate(context.Context) error { return c.err }

func (c *stubCache) Stats() (int64, int64) { return c.hits, c.misses }

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return body
}

func TestQuery(t *testing.T) {
	exec := &stubExecutor{ids: []int{0}}
	h := New(exec, nil)

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query?q=cat+dog", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !reflect.DeepEqual(exec.calls, [][]string{{"cat", "dog"}}) {
		t.Errorf("executor called with %q", exec.calls)
	}
	body := decode(t, rec)
	if body["total_hits"] != float64(1) || body["cache_hit"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestQueryMissingParameter(t *testing.T) {
	h := New(&stubExecutor{}, nil)
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status %d, want 400", rec.Code)
	}
	if msg := decode(t, rec)["error"]; msg != "query parameter 'q' is required" {
		t.Errorf("error = %v", msg)
	}
}

func TestQueryEmptyParameterReturnsNoHits(t *testing.T) {
	exec := &stubExecutor{ids: []int{}}
	h := New(exec, &stubCache{hit: []int{99}})
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query?q=", nil))
	if rec.Code != http.StatusOK || decode(t, rec)["total_hits"] != float64(0) {
		t.Errorf("status %d", rec.Code)
	}
}

func TestQueryJSON(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"strings", `{"terms":["cat","dog"]}`, http.StatusOK},
		{"non-string element", `{"terms":["cat",1]}`, http.StatusBadRequest},
		{"null element", `{"terms":[null]}`, http.StatusBadRequest},
		{"terms not a list", `{"terms":"cat"}`, http.StatusBadRequest},
		{"unknown field", `{"words":["cat"]}`, http.StatusBadRequest},
		{"not json", `cat dog`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &stubExecutor{ids: []int{0}}
			h := New(exec, nil)
			rec := httptest.NewRecorder()
			h.QueryJSON(rec, httptest.NewRequest(http.MethodPost, "/api/v1/query", strings.NewReader(tt.body)))
			if rec.Code != tt.status {
				t.Errorf("status %d, want %d (%s)", rec.Code, tt.status, rec.Body)
			}
			if tt.status != http.StatusOK && len(exec.calls) != 0 {
				t.Error("executor ran for rejected input")
			}
		})
	}
}

func TestQueryUsesCache(t *testing.T) {
	exec := &stubExecutor{ids: []int{5}}
	h := New(exec, &stubCache{hit: []int{1, 2}})

	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query?q=cat", nil))
	body := decode(t, rec)
	if body["cache_hit"] != true || body["total_hits"] != float64(2) || len(exec.calls) != 0 {
		t.Errorf("body = %v, executor calls %d", body, len(exec.calls))
	}
}

func TestCacheFailureIsInternalError(t *testing.T) {
	h := New(&stubExecutor{}, &stubCache{err: errors.New("redis gone")})
	rec := httptest.NewRecorder()
	h.Query(rec, httptest.NewRequest(http.MethodGet, "/api/v1/query?q=cat", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status %d", rec.Code)
	}
	if msg := decode(t, rec)["error"]; msg != "internal error" {
		t.Errorf("error = %v", msg)
	}
}

func TestIndexStats(t *testing.T) {
	h := New(&stubExecutor{stats: index.Stats{Terms: 2, Postings: 4, Documents: 3}}, nil)
	rec := httptest.NewRecorder()
	h.IndexStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/index/stats", nil))
	body := decode(t, rec)
	if body["terms"] != float64(2) || body["documents"] != float64(3) {
		t.Errorf("body = %v", body)
	}
}

func TestCacheEndpoints(t *testing.T) {
	h := New(&stubExecutor{}, nil)
	rec := httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("invalidate without cache: status %d", rec.Code)
	}

	h = New(&stubExecutor{}, &stubCache{hits: 3, misses: 1})
	rec = httptest.NewRecorder()
	h.CacheStats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil))
	if body := decode(t, rec); body["hit_rate"] != "75.0%" {
		t.Errorf("body = %v", body)
	}
	rec = httptest.NewRecorder()
	h.CacheInvalidate(rec, httptest.NewRequest(http.MethodPost, "/api/v1/cache/invalidate", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("invalidate: status %d", rec.Code)
	}
}
