package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
)

// Merger reconciles parsed feed entries with stored articles, keyed by URL.
type Merger struct {
	store      *storage.Store
	maxAgeDays int
	log        zerolog.Logger
}

func NewMerger(store *storage.Store, maxAgeDays int) *Merger {
	return &Merger{
		store:      store,
		maxAgeDays: maxAgeDays,
		log:        logger.Component("merger"),
	}
}

// Merge creates articles for unseen URLs and fills in content that a stored
// article is missing. Articles published more than maxAgeDays whole days
// before now are ignored. The source's fetch stamp is updated in the same
// transaction.
func (m *Merger) Merge(ctx context.Context, sourceID uint, articles []models.RawArticle, now time.Time) (models.MergeCounts, error) {
	var counts models.MergeCounts

	err := m.store.Transaction(ctx, func(tx *storage.Store) error {
		counts = models.MergeCounts{}
		for _, raw := range articles {
			if m.tooOld(raw, now) {
				continue
			}

			existing, err := tx.FindArticleByURL(ctx, raw.URL)
			switch {
			case errors.Is(err, errs.ErrNotFound):
				article := &models.Article{
					SourceID:    sourceID,
					Title:       raw.Title,
					URL:         raw.URL,
					Summary:     raw.Summary,
					Content:     raw.Content,
					Author:      raw.Author,
					PublishedAt: raw.PublishedAt,
					FetchedAt:   now,
				}
				if err := tx.CreateArticle(ctx, article); err != nil {
					return err
				}
				counts.New++
				m.log.Debug().Str("article", describe(raw)).Msg("New article")
			case err != nil:
				return err
			case raw.Content != "" && existing.Content == "":
				if err := tx.SetArticleContent(ctx, existing.ID, raw.Content); err != nil {
					return err
				}
				counts.Updated++
				m.log.Debug().Str("article", describe(raw)).Msg("Filled missing content")
			}
		}
		return tx.RecordFetchSuccess(ctx, sourceID, now)
	})
	if err != nil {
		return models.MergeCounts{}, err
	}
	return counts, nil
}

func (m *Merger) tooOld(raw models.RawArticle, now time.Time) bool {
	if raw.PublishedAt == nil {
		return false
	}
	ageDays := int(now.Sub(*raw.PublishedAt) / (24 * time.Hour))
	return ageDays > m.maxAgeDays
}
