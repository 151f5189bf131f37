package index

import (
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
)

// PostingList holds document ids in the order documents were indexed.
type PostingList []int

type TermEntry struct {
	Term     string
	Postings PostingList
}

type Stats struct {
	Terms     int `json:"terms"`
	Postings  int `json:"postings"`
	Documents int `json:"documents"`
}

// InvertedIndex maps lower-case terms to posting lists and keeps terms in
// insertion order, which both codecs rely on.
type InvertedIndex struct {
	terms    []string
	postings map[string]PostingList
}

func New() *InvertedIndex {
	return &InvertedIndex{
		postings: make(map[string]PostingList),
	}
}

// Add records docID under term. Consecutive adds of the same id for a term
// are collapsed, so a document contributes at most once per term as long as
// it is indexed in one pass.
func (ix *InvertedIndex) Add(term string, docID int) {
	postings, exists := ix.postings[term]
	if !exists {
		ix.terms = append(ix.terms, term)
	}
	if n := len(postings); n > 0 && postings[n-1] == docID {
		return
	}
	ix.postings[term] = append(postings, docID)
}

// Set installs a complete posting list for a new term. It is used by the
// decoders and rejects input that would break the index invariants.
func (ix *InvertedIndex) Set(term string, postings PostingList) error {
	if term == "" {
		return fmt.Errorf("empty term: %w", apperrors.ErrMalformed)
	}
	if strings.ToLower(term) != term {
		return fmt.Errorf("term %q is not lower-case: %w", term, apperrors.ErrMalformed)
	}
	if _, exists := ix.postings[term]; exists {
		return fmt.Errorf("duplicate term %q: %w", term, apperrors.ErrMalformed)
	}
	seen := make(map[int]struct{}, len(postings))
	for _, id := range postings {
		if id < 0 {
			return fmt.Errorf("term %q: negative document id %d: %w", term, id, apperrors.ErrMalformed)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("term %q: document id %d posted twice: %w", term, id, apperrors.ErrMalformed)
		}
		seen[id] = struct{}{}
	}
	ix.terms = append(ix.terms, term)
	ix.postings[term] = slices.Clone(postings)
	return nil
}

func (ix *InvertedIndex) Postings(term string) (PostingList, bool) {
	postings, ok := ix.postings[term]
	return postings, ok
}

func (ix *InvertedIndex) Contains(term string) bool {
	_, ok := ix.postings[term]
	return ok
}

func (ix *InvertedIndex) Len() int {
	return len(ix.terms)
}

// Terms returns terms in insertion order.
func (ix *InvertedIndex) Terms() []string {
	return slices.Clone(ix.terms)
}

// Entries returns every term with its postings in insertion order.
func (ix *InvertedIndex) Entries() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.terms))
	for _, term := range ix.terms {
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: ix.postings[term],
		})
	}
	return entries
}

// Equal compares two indexes as mappings: same term set and, per term, the
// same postings in the same order. Term insertion order is ignored.
func (ix *InvertedIndex) Equal(other *InvertedIndex) bool {
	if ix == nil || other == nil {
		return ix == other
	}
	if len(ix.postings) != len(other.postings) {
		return false
	}
	for term, postings := range ix.postings {
		otherPostings, ok := other.postings[term]
		if !ok || !slices.Equal(postings, otherPostings) {
			return false
		}
	}
	return true
}

func (ix *InvertedIndex) Stats() Stats {
	docs := make(map[int]struct{})
	total := 0
	for _, postings := range ix.postings {
		total += len(postings)
		for _, id := range postings {
			docs[id] = struct{}{}
		}
	}
	return Stats{
		Terms:     len(ix.terms),
		Postings:  total,
		Documents: len(docs),
	}
}
