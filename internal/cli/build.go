package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/codec"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/document"
	apperrors "github.com/Adithya-Monish-Kumar-K/invindex/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/sqlite"
)

const (
	sourceFile     = "file"
	sourcePostgres = "postgres"
	sourceSQLite   = "sqlite"
)

func newBuildCmd(root *rootOptions) *cobra.Command {
	var dataset, output, strategy, source string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an inverted index from a corpus and write it to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			dataset = stringFlag(cmd, "dataset", dataset, cfg.Index.Dataset)
			output = stringFlag(cmd, "output", output, cfg.Index.Output)
			strategy = stringFlag(cmd, "strategy", strategy, cfg.Index.Strategy)
			source = stringFlag(cmd, "source", source, cfg.Index.Source)

			strat, err := codec.ParseStrategy(strategy)
			if err != nil {
				return err
			}

			opts := []indexer.Option{}
			if cfg.Metrics.Enabled {
				reg := metrics.NewRegistry()
				opts = append(opts, indexer.WithMetrics(metrics.New(reg)))
				shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
				defer shutdown(context.Background())
			}
			if cfg.Kafka.Enabled {
				producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
				defer producer.Close()
				opts = append(opts, indexer.WithPublisher(producer))
			}
			engine := indexer.NewEngine(opts...)

			ctx := cmd.Context()
			switch source {
			case sourceFile:
				_, err = engine.BuildFile(ctx, dataset, output, strat)
				return err
			case sourcePostgres:
				client, err := postgres.Open(ctx, cfg.Postgres)
				if err != nil {
					return err
				}
				defer client.Close()
				corpus, err := document.LoadDB(ctx, client.DB, cfg.Index.CorpusQuery)
				if err != nil {
					return fmt.Errorf("loading documents: %w", err)
				}
				slog.Default().Debug("corpus loaded from postgres", "documents", corpus.Len())
				_, err = engine.Build(ctx, corpus, output, strat)
				return err
			case sourceSQLite:
				db, err := sqlite.OpenReadOnly(ctx, cfg.Index.SQLitePath)
				if err != nil {
					return err
				}
				defer db.Close()
				corpus, err := document.LoadDB(ctx, db, cfg.Index.CorpusQuery)
				if err != nil {
					return fmt.Errorf("loading documents: %w", err)
				}
				slog.Default().Debug("corpus loaded from sqlite", "path", cfg.Index.SQLitePath, "documents", corpus.Len())
				_, err = engine.Build(ctx, corpus, output, strat)
				return err
			default:
				return fmt.Errorf("corpus source %q (want %s, %s or %s): %w", source, sourceFile, sourcePostgres, sourceSQLite, apperrors.ErrInvalidInput)
			}
		},
	}

	cmd.Flags().StringVarP(&dataset, "dataset", "d", "wikipedia_sample", "Corpus file, one \"<id>\\t<content>\" document per line")
	cmd.Flags().StringVarP(&output, "output", "o", "inverted.index", "Path to write the index to")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "binary", "Storage strategy: json, binary or struct")
	cmd.Flags().StringVar(&source, "source", sourceFile, "Corpus source: file, postgres or sqlite")

	return cmd
}
