package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/middleware"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	corpus := document.NewCorpus()
	corpus.Put(0, "cat dog")
	corpus.Put(1, "cat")
	corpus.Put(2, "dog")
	ix := index.Build(corpus)

	checker := health.NewChecker(time.Second)
	checker.Register("index", true, func(context.Context) error { return nil })

	h := handler.New(executor.New(ix, nil), nil)
	srv := httptest.NewServer(New(h, checker, metrics.New(metrics.NewRegistry()), time.Second))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/query?q=CAT+dog")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get(middleware.RequestIDHeader) == "" {
		t.Fatalf("status %d, request id %q", resp.StatusCode, resp.Header.Get(middleware.RequestIDHeader))
	}
	var body handler.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(body.DocIDs, []int{0}) {
		t.Errorf("doc_ids = %v", body.DocIDs)
	}

	for path, want := range map[string]int{
		"/health/live":        http.StatusOK,
		"/health/ready":       http.StatusOK,
		"/api/v1/index/stats": http.StatusOK,
		"/api/v1/cache/stats": http.StatusOK,
		"/api/v1/nope":        http.StatusNotFound,
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Errorf("GET %s = %d, want %d", path, resp.StatusCode, want)
		}
	}
}

func TestPostQuery(t *testing.T) {
	srv := newServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(`{"terms":["dog"]}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body handler.QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(body.DocIDs, []int{0, 2}) {
		t.Errorf("doc_ids = %v", body.DocIDs)
	}

	bad, err := http.Post(srv.URL+"/api/v1/query", "application/json", strings.NewReader(`{"terms":["dog", 3]}`))
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("non-string term: status %d, want 400", bad.StatusCode)
	}
}
