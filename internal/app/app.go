package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/ai"
	"github.com/bilgisen/illustrate/internal/analyzer"
	"github.com/bilgisen/illustrate/internal/api"
	"github.com/bilgisen/illustrate/internal/archive"
	"github.com/bilgisen/illustrate/internal/cache"
	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/feed"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/search"
	"github.com/bilgisen/illustrate/internal/storage"
)

// App owns every long-lived resource built from the configuration.
type App struct {
	Config   *config.Config
	Services api.Services
	locker   cache.Locker
	log      zerolog.Logger
}

// New opens storage, picks a locker and builds the services. A missing model
// leaves analysis and search disabled rather than failing start-up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log := logger.Component("app")

	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	var locker cache.Locker
	if cfg.RedisURL != "" {
		locker, err = cache.NewRedisLocker(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			store.Close()
			return nil, err
		}
	} else {
		locker = cache.NewMemoryLocker()
	}

	var opts []feed.FetcherOption
	archiver, err := archive.NewFromConfig(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Feed archive disabled")
	} else if archiver != nil {
		opts = append(opts, feed.WithArchiver(archiver))
	}

	fetcher := feed.NewFetcher(cfg.FetchConcurrency, cfg.FetchTimeout, opts...)
	svc := api.Services{
		Store:     store,
		Refresher: feed.NewRefresher(store, fetcher, feed.NewMerger(store, cfg.MaxArticleAgeDays), locker, cfg.LockTTL),
	}

	model, err := ai.NewFromConfig(cfg)
	switch {
	case err == nil:
		svc.Analyzer = analyzer.New(store, model, cfg.AnalyzeMinLength, locker, cfg.LockTTL)
		svc.Search = search.New(store, model)
	case errors.Is(err, errs.ErrModelUnavailable):
		log.Warn().Err(err).Msg("Analysis and search disabled")
	default:
		locker.Close()
		store.Close()
		return nil, fmt.Errorf("init model: %w", err)
	}

	return &App{Config: cfg, Services: svc, locker: locker, log: log}, nil
}

// Close releases the locker and the database.
func (a *App) Close() error {
	if err := a.locker.Close(); err != nil {
		a.log.Error().Err(err).Msg("Error closing locker")
	}
	return a.Services.Store.Close()
}
