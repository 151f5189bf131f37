// Package index holds the in-memory inverted index and the builder that
// produces it from a loaded corpus.
package index

import (
	"log/slog"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/tokenizer"
)

// Build indexes every document of corpus in corpus order. Each distinct term
// of a document appends that document's id to the term's postings once.
func Build(corpus *document.Corpus) *InvertedIndex {
	logger := slog.Default().With("component", "index-builder")
	logger.Info("building inverted index for provided documents", "documents", corpus.Len())

	ix := New()
	corpus.Each(func(doc document.Document) {
		for _, term := range tokenizer.Unique(strings.ToLower(doc.Content)) {
			ix.Add(term, doc.ID)
		}
	})

	logger.Debug("inverted index built", "terms", ix.Len())
	return ix
}
