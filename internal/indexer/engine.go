package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/document"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/lock"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/resilience"
)

// Publisher sends build notifications. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// IndexBuilt is published after an index has been written to disk.
type IndexBuilt struct {
	Path      string    `json:"path"`
	Strategy  string    `json:"strategy"`
	Terms     int       `json:"terms"`
	Postings  int       `json:"postings"`
	Documents int       `json:"documents"`
	BuiltAt   time.Time `json:"built_at"`
}

type BuildResult struct {
	Index    *index.InvertedIndex
	Path     string
	Strategy codec.Strategy
	Stats    index.Stats
	Duration time.Duration
}

// Engine runs the build pipeline: corpus in, index file out.
type Engine struct {
	publisher Publisher
	retry     resilience.RetryConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

type Option func(*Engine)

func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithPublishRetry overrides the retry policy for build notifications.
func WithPublishRetry(cfg resilience.RetryConfig) Option {
	return func(e *Engine) { e.retry = cfg }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		logger: slog.Default().With("component", "indexer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BuildFile loads the corpus at corpusPath and writes its index to outPath.
func (e *Engine) BuildFile(ctx context.Context, corpusPath, outPath string, strategy codec.Strategy) (*BuildResult, error) {
	corpus, err := document.LoadFile(corpusPath)
	if err != nil {
		e.recordBuild("error")
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	return e.Build(ctx, corpus, outPath, strategy)
}

// Build indexes corpus, dumps the result to outPath under an exclusive file
// lock and, if a publisher is configured, announces the new index. A failed
// announcement is logged and does not fail the build; the index file is
// already in place by then.
func (e *Engine) Build(ctx context.Context, corpus *document.Corpus, outPath string, strategy codec.Strategy) (*BuildResult, error) {
	start := time.Now()
	ix := index.Build(corpus)
	if e.metrics != nil {
		e.metrics.DocsIndexedTotal.Add(float64(corpus.Len()))
	}

	if strategy == codec.StrategyBinary {
		if err := codec.CheckBinaryLimits(ix); err != nil {
			e.recordBuild("error")
			return nil, fmt.Errorf("dumping index: %w", err)
		}
	}
	fl := lock.For(outPath)
	if err := fl.TryLock(); err != nil {
		e.recordBuild("error")
		return nil, err
	}
	err := codec.Dump(ix, outPath, strategy)
	if unlockErr := fl.Unlock(); unlockErr != nil {
		e.logger.Warn("failed to release index lock", "path", outPath, "error", unlockErr)
	}
	if err != nil {
		e.recordBuild("error")
		return nil, fmt.Errorf("dumping index: %w", err)
	}
	e.recordBuild("ok")

	result := &BuildResult{
		Index:    ix,
		Path:     outPath,
		Strategy: strategy,
		Stats:    ix.Stats(),
		Duration: time.Since(start),
	}
	e.logger.Info("inverted index written",
		"path", outPath,
		"strategy", string(strategy),
		"documents", corpus.Len(),
		"terms", result.Stats.Terms,
		"postings", result.Stats.Postings,
		"duration_ms", result.Duration.Milliseconds(),
	)
	e.notify(ctx, result)
	return result, nil
}

func (e *Engine) notify(ctx context.Context, result *BuildResult) {
	if e.publisher == nil {
		return
	}
	event := kafka.Event{
		Key: result.Path,
		Value: IndexBuilt{
			Path:      result.Path,
			Strategy:  string(result.Strategy),
			Terms:     result.Stats.Terms,
			Postings:  result.Stats.Postings,
			Documents: result.Stats.Documents,
			BuiltAt:   time.Now().UTC(),
		},
	}
	err := resilience.Retry(ctx, "publish-index-built", e.retry, func(ctx context.Context) error {
		return e.publisher.Publish(ctx, event)
	})
	if err != nil {
		e.logger.Error("failed to publish index built event", "path", result.Path, "error", err)
	}
}

func (e *Engine) recordBuild(status string) {
	if e.metrics != nil {
		e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
	}
}
