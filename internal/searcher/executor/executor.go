// Package executor answers conjunctive queries against a loaded inverted
// index.
package executor

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
)

type SearchResult struct {
	Query     string   `json:"query"`
	Terms     []string `json:"terms"`
	TotalHits int      `json:"total_hits"`
	DocIDs    []int    `json:"doc_ids"`
}

type Executor struct {
	index   *index.InvertedIndex
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New returns an executor over ix. m may be nil.
func New(ix *index.InvertedIndex, m *metrics.Metrics) *Executor {
	return &Executor{
		index:   ix,
		metrics: m,
		logger:  slog.Default().With("component", "query-executor"),
	}
}

func (e *Executor) Stats() index.Stats {
	return e.index.Stats()
}

func (e *Executor) Execute(plan *parser.QueryPlan) *SearchResult {
	ids := e.Query(plan.Terms)
	return &SearchResult{
		Query:     plan.RawQuery,
		Terms:     plan.Terms,
		TotalHits: len(ids),
		DocIDs:    ids,
	}
}

// Query returns the ids of the documents containing every term, in ascending
// order. Terms are matched case-insensitively. An empty term list and any
// unknown term both yield an empty, non-nil result.
func (e *Executor) Query(terms []string) []int {
	start := time.Now()
	ids := e.query(terms)
	e.record(ids, time.Since(start))
	return ids
}

// QueryValues is Query for loosely typed input such as decoded JSON. Every
// element must be a string; otherwise no lookup is done and ErrInvalidInput
// is returned.
func (e *Executor) QueryValues(values []any) ([]int, error) {
	terms, err := Terms(values)
	if err != nil {
		if e.metrics != nil {
			e.metrics.QueriesTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	return e.Query(terms), nil
}

// Terms converts loosely typed query input to a term list, rejecting any
// element that is not a string.
func Terms(values []any) ([]string, error) {
	terms := make([]string, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "query term %d has type %T, want string", i, v)
		}
		terms = append(terms, s)
	}
	return terms, nil
}

func (e *Executor) query(terms []string) []int {
	if len(terms) == 0 {
		return []int{}
	}
	lists := make([]index.PostingList, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = strings.ToLower(term)
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}
		postings, ok := e.index.Postings(term)
		if !ok {
			e.logger.Debug("term not in index", "term", term)
			return []int{}
		}
		lists = append(lists, postings)
	}
	return intersectPostings(lists)
}

func intersectPostings(lists []index.PostingList) []int {
	shortest := 0
	for i, postings := range lists {
		if len(postings) < len(lists[shortest]) {
			shortest = i
		}
	}
	candidates := make(map[int]struct{}, len(lists[shortest]))
	for _, id := range lists[shortest] {
		candidates[id] = struct{}{}
	}
	for i, postings := range lists {
		if i == shortest {
			continue
		}
		if len(candidates) == 0 {
			break
		}
		docSet := make(map[int]struct{}, len(postings))
		for _, id := range postings {
			docSet[id] = struct{}{}
		}
		for id := range candidates {
			if _, exists := docSet[id]; !exists {
				delete(candidates, id)
			}
		}
	}
	ids := make([]int, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (e *Executor) record(ids []int, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	resultType := "hit"
	if len(ids) == 0 {
		resultType = "empty"
	}
	e.metrics.QueriesTotal.WithLabelValues(resultType).Inc()
	e.metrics.QueryLatency.WithLabelValues("none").Observe(elapsed.Seconds())
	e.metrics.QueryResultsCount.Observe(float64(len(ids)))
}

// String renders ids the way the query command prints them: comma-joined,
// empty for no hits.
func String(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", id)
	}
	return b.String()
}
