// Package app initializes and holds long-lived application services, acting
// as a dependency injection container for the CLI commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mjaros/linksync/internal/api"
	"github.com/mjaros/linksync/internal/archive"
	"github.com/mjaros/linksync/internal/cache"
	"github.com/mjaros/linksync/internal/clock/system"
	"github.com/mjaros/linksync/internal/config"
	"github.com/mjaros/linksync/internal/crawler"
	"github.com/mjaros/linksync/internal/logging"
	"github.com/mjaros/linksync/internal/newsletter"
	"github.com/mjaros/linksync/internal/queue"
)

// App holds the shared, long-lived services. It is initialized once at
// startup and passed to the commands that need it.
type App struct {
	cfg     config.Config
	logger  *zap.Logger
	cache   *cache.Service
	store   newsletter.Store
	seen    *crawler.SeenSet
	archive archive.Provider
	queue   queue.Provider
	metrics *http.Server
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Cache returns the layered cache service.
func (a *App) Cache() *cache.Service { return a.cache }

// Store returns the newsletter corpus store.
func (a *App) Store() newsletter.Store { return a.store }

// Seen returns the persisted crawled-URL set.
func (a *App) Seen() *crawler.SeenSet { return a.seen }

// Archive returns the raw page snapshot provider.
func (a *App) Archive() archive.Provider { return a.archive }

// Queue returns the crawl event publisher.
func (a *App) Queue() queue.Provider { return a.queue }

// New creates and initializes an App from cfg. It is the central point for
// service initialization and fails fast if any critical service cannot be
// built.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	cacheSvc, err := cache.NewService(cfg.Cache.Dir, system.New(), map[string]time.Duration{
		cache.NamespaceArticles:    time.Duration(cfg.Cache.ArticlesTTLDays) * 24 * time.Hour,
		cache.NamespaceCollections: time.Duration(cfg.Cache.CollectionsTTLHrs) * time.Hour,
		cache.NamespaceEnrichments: cache.NoExpiry,
		cache.NamespaceMeta:        cfg.RefreshInterval(),
	})
	if err != nil {
		return nil, fmt.Errorf("initialize cache: %w", err)
	}

	store, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	seen, err := crawler.LoadSeenSet(cfg.Crawler.SeenFile)
	if err != nil {
		return nil, err
	}

	archiveProvider, err := newArchive(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	queueProvider, err := newQueue(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		cache:   cacheSvc,
		store:   store,
		seen:    seen,
		archive: archiveProvider,
		queue:   queueProvider,
	}

	if cfg.Server.Enabled {
		srv := api.NewServer(store, seen, logger)
		a.metrics = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("Starting metrics listener", zap.Int("port", cfg.Server.Port))
			if err := a.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("Metrics listener failed", zap.Error(err))
			}
		}()
	}

	return a, nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (newsletter.Store, error) {
	switch cfg.Corpus.Backend {
	case "file":
		logger.Info("Using JSONL corpus store", zap.String("path", cfg.Corpus.Path))
		return newsletter.NewFileStore(cfg.Corpus.Path)
	case "postgres":
		logger.Info("Using PostgreSQL corpus store", zap.String("table", cfg.Corpus.Table))
		return newsletter.NewPostgresStore(ctx, newsletter.PostgresStoreConfig{
			DSN:   cfg.Corpus.DSN,
			Table: cfg.Corpus.Table,
		})
	default:
		return nil, fmt.Errorf("unknown corpus backend: %s", cfg.Corpus.Backend)
	}
}

func newArchive(ctx context.Context, cfg config.Config, logger *zap.Logger) (archive.Provider, error) {
	switch cfg.Archive.Backend {
	case "none":
		logger.Info("Page snapshots disabled")
		return &archive.NoOpProvider{}, nil
	case "local":
		logger.Info("Using local page archive", zap.String("dir", cfg.Archive.Dir))
		return archive.NewLocalProvider(cfg.Archive.Dir)
	case "gcs":
		logger.Info("Using GCS page archive", zap.String("bucket", cfg.Archive.GCSBucket))
		return archive.NewGCSProvider(ctx, cfg.Archive.GCSBucket, logger)
	default:
		return nil, fmt.Errorf("unknown archive backend: %s", cfg.Archive.Backend)
	}
}

func newQueue(ctx context.Context, cfg config.Config, logger *zap.Logger) (queue.Provider, error) {
	if !cfg.PubSub.Enabled {
		logger.Info("Crawl event publishing disabled")
		return &queue.NoOpProvider{}, nil
	}
	logger.Info("Connecting to GCP Pub/Sub", zap.String("topic", cfg.PubSub.TopicName))
	return queue.NewPubSubProvider(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
}

// Close gracefully shuts down all services. It is called by a Cobra hook
// after the command finishes.
func (a *App) Close() {
	a.logger.Info("Shutting down application services")
	if err := a.queue.Close(); err != nil {
		a.logger.Warn("Error closing queue client", zap.Error(err))
	}
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.logger.Warn("Error stopping metrics listener", zap.Error(err))
		}
	}
	_ = a.logger.Sync() // best-effort flush
}
