package cli

import (
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
)

// loadIndex reads the index at path, recording the outcome on m if non-nil.
func loadIndex(path, strategy string, m *metrics.Metrics) (*index.InvertedIndex, codec.Strategy, error) {
	strat, err := codec.ParseStrategy(strategy)
	if err != nil {
		return nil, "", err
	}
	ix, err := codec.Load(path, strat)
	if m != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.IndexLoadsTotal.WithLabelValues(string(strat), status).Inc()
	}
	if err != nil {
		return nil, "", err
	}
	if m != nil {
		m.IndexTerms.Set(float64(ix.Len()))
	}
	return ix, strat, nil
}
