package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/invindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/invindex/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/invindex/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/invindex/pkg/resilience"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var indexPath, strategy string
	var port int
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries against a stored index over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			indexPath = stringFlag(cmd, "index", indexPath, cfg.Index.Output)
			strategy = stringFlag(cmd, "strategy", strategy, cfg.Index.Strategy)
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if !cmd.Flags().Changed("watch") {
				watch = cfg.Server.WatchIndex
			}
			log := slog.Default().With("component", "query-service")
			ctx := cmd.Context()

			reg := metrics.NewRegistry()
			m := metrics.New(reg)

			reloader, err := reload.New(indexPath, func() (*index.InvertedIndex, error) {
				ix, _, err := loadIndex(indexPath, strategy, m)
				return ix, err
			}, m)
			if err != nil {
				return err
			}
			stats := reloader.Stats()
			log.Info("index loaded", "path", indexPath, "terms", stats.Terms, "documents", stats.Documents)

			if cfg.Metrics.Enabled {
				shutdown := metrics.StartServer(cfg.Metrics.Port, reg)
				defer shutdown(context.Background())
			}

			checker := health.NewChecker(2 * time.Second)
			checker.Register("index", true, func(context.Context) error {
				_, err := os.Stat(indexPath)
				return err
			})

			var store cache.Store
			if cfg.Redis.Enabled {
				client, err := pkgredis.NewClient(ctx, cfg.Redis, 5*time.Second)
				if err != nil {
					log.Warn("redis unavailable, falling back to in-process cache", "error", err)
				} else {
					defer client.Close()
					breaker := resilience.NewCircuitBreaker("redis", resilience.BreakerConfig{})
					store = cache.Guard(client, breaker)
					checker.Register("redis", false, client.Ping)
					log.Info("query cache enabled", "backend", "redis", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
				}
			}
			if store == nil && cfg.Redis.LocalCacheSize > 0 {
				local := cache.NewLocalStore(cfg.Redis.LocalCacheSize, cfg.Redis.CacheTTL)
				store = local
				// Old generations are never read again; free the memory.
				reloader.OnSwap(func(index.Stats) { local.Purge() })
				log.Info("query cache enabled", "backend", "local", "size", cfg.Redis.LocalCacheSize, "ttl", cfg.Redis.CacheTTL)
			}

			var resultCache handler.ResultCache
			if store != nil {
				qc := cache.New(store, cfg.Redis.CacheTTL, reloader.Generation(), m)
				qc.TrackGeneration(reloader.Generation)
				resultCache = qc
			}

			if watch {
				go func() {
					if err := reloader.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("index watcher stopped", "error", err)
					}
				}()
			}

			h := handler.New(reloader, resultCache)
			server := &http.Server{
				Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
				Handler:      router.New(h, checker, m, cfg.Server.RequestTimeout),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("query service listening", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("query service: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutdown signal received")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutting down query service: %w", err)
			}
			log.Info("query service stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&indexPath, "index", "i", "inverted.index", "Path of the index to serve")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "binary", "Storage strategy of the index: json, binary or struct")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP port")
	cmd.Flags().BoolVar(&watch, "watch", false, "Reload the index when the file on disk is replaced")

	return cmd
}
