package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/cache"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
)

// Refresher runs fetch cycles: fetch concurrently, then merge source by source.
type Refresher struct {
	store   *storage.Store
	fetcher *Fetcher
	merger  *Merger
	locker  cache.Locker
	lockTTL time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

func NewRefresher(store *storage.Store, fetcher *Fetcher, merger *Merger, locker cache.Locker, lockTTL time.Duration) *Refresher {
	return &Refresher{
		store:   store,
		fetcher: fetcher,
		merger:  merger,
		locker:  locker,
		lockTTL: lockTTL,
		now:     time.Now,
		log:     logger.Component("refresher"),
	}
}

// RefreshAll fetches every enabled source. Per-source failures end up in the
// summary and on the source; only storage or lock problems return an error.
func (r *Refresher) RefreshAll(ctx context.Context) (models.CycleSummary, error) {
	release, err := r.locker.Acquire(ctx, cache.LockRefresh, r.lockTTL)
	if err != nil {
		return models.CycleSummary{}, err
	}
	defer r.releaseLock(release)

	sources, err := r.store.ListSources(ctx, true)
	if err != nil {
		return models.CycleSummary{}, err
	}

	start := time.Now()
	r.log.Info().
		Int("sources", len(sources)).
		Msg("Starting fetch cycle")

	results := r.fetcher.FetchAll(ctx, sources)

	summary := newSummary()
	for _, src := range sources {
		res, ok := results[src.ID]
		if !ok {
			continue
		}
		r.apply(ctx, src, res, &summary)
	}

	r.log.Info().
		Int("sources_fetched", summary.SourcesFetched).
		Int("sources_failed", summary.SourcesFailed).
		Int("articles_new", summary.ArticlesNew).
		Int("articles_updated", summary.ArticlesUpdated).
		Dur("duration", time.Since(start)).
		Msg("Finished fetch cycle")

	return summary, nil
}

// FetchOne fetches the first source whose name contains name, enabled or not.
func (r *Refresher) FetchOne(ctx context.Context, name string) (*models.Source, models.CycleSummary, error) {
	src, err := r.store.FindSourceByName(ctx, name)
	if err != nil {
		return nil, models.CycleSummary{}, err
	}

	release, err := r.locker.Acquire(ctx, cache.LockRefresh, r.lockTTL)
	if err != nil {
		return nil, models.CycleSummary{}, err
	}
	defer r.releaseLock(release)

	summary := newSummary()
	r.apply(ctx, *src, r.fetcher.FetchSource(ctx, *src), &summary)
	return src, summary, nil
}

func (r *Refresher) apply(ctx context.Context, src models.Source, res Result, summary *models.CycleSummary) {
	now := r.now()

	if res.Err != nil {
		r.fail(ctx, src, res.Err.Error(), now, summary)
		return
	}

	counts, err := r.merger.Merge(ctx, src.ID, res.Articles, now)
	if err != nil {
		r.fail(ctx, src, fmt.Sprintf("Error saving articles: %v", err), now, summary)
		return
	}

	summary.SourcesFetched++
	summary.ArticlesNew += counts.New
	summary.ArticlesUpdated += counts.Updated

	r.log.Info().
		Str("source", src.Name).
		Int("articles", len(res.Articles)).
		Int("new", counts.New).
		Int("updated", counts.Updated).
		Msg("Merged feed")
}

func (r *Refresher) fail(ctx context.Context, src models.Source, msg string, now time.Time, summary *models.CycleSummary) {
	summary.SourcesFailed++
	summary.Errors = append(summary.Errors, models.SourceError{Source: src.Name, Error: msg})

	r.log.Warn().
		Str("source", src.Name).
		Str("url", src.URL).
		Str("error", msg).
		Msg("Feed fetch failed")

	if err := r.store.RecordFetchError(ctx, src.ID, msg, now); err != nil {
		r.log.Error().
			Err(err).
			Str("source", src.Name).
			Msg("Failed to record fetch error")
	}
}

func (r *Refresher) releaseLock(release cache.Release) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := release(ctx); err != nil {
		r.log.Error().Err(err).Msg("Failed to release refresh lock")
	}
}

func newSummary() models.CycleSummary {
	return models.CycleSummary{Errors: []models.SourceError{}}
}
