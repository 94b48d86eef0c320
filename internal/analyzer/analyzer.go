package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/ai"
	"github.com/bilgisen/illustrate/internal/cache"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
	"github.com/bilgisen/illustrate/internal/utils"
)

const (
	// DefaultMinLength is the least content-or-summary text, in characters, worth scoring.
	DefaultMinLength = 100

	reportTitleLimit = 50
)

// Analyzer scores unanalyzed articles one at a time.
type Analyzer struct {
	store     *storage.Store
	model     ai.Model
	minLength int
	locker    cache.Locker
	lockTTL   time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

func New(store *storage.Store, model ai.Model, minLength int, locker cache.Locker, lockTTL time.Duration) *Analyzer {
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	return &Analyzer{
		store:     store,
		model:     model,
		minLength: minLength,
		locker:    locker,
		lockTTL:   lockTTL,
		now:       time.Now,
		log:       logger.Component("analyzer"),
	}
}

// AnalyzeBatch scores up to limit articles. A failing article is counted and
// left unanalyzed; only lock or storage listing problems return an error.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, limit int) (models.BatchSummary, error) {
	release, err := a.locker.Acquire(ctx, cache.LockAnalyze, a.lockTTL)
	if err != nil {
		return models.BatchSummary{}, err
	}
	defer a.releaseLock(release)

	pending, err := a.store.ListUnanalyzed(ctx, limit)
	if err != nil {
		return models.BatchSummary{}, err
	}

	summary := models.BatchSummary{Articles: []models.AnalyzedArticle{}}
	if len(pending) == 0 {
		summary.Message = "No articles to analyze"
		return summary, nil
	}

	start := time.Now()
	a.log.Info().
		Int("articles", len(pending)).
		Msg("Starting analysis batch")

	for i := range pending {
		if err := ctx.Err(); err != nil {
			a.log.Warn().Err(err).Msg("Analysis batch cancelled")
			break
		}

		article := &pending[i]
		text := article.Content
		if text == "" {
			text = article.Summary
		}
		if utils.RuneLen(text) < a.minLength {
			summary.Skipped++
			a.log.Debug().
				Uint("article_id", article.ID).
				Int("length", utils.RuneLen(text)).
				Msg("Skipping short article")
			continue
		}

		result, themes, err := a.analyze(ctx, article)
		if err != nil {
			summary.Errors++
			a.log.Error().
				Err(err).
				Uint("article_id", article.ID).
				Str("title", article.Title).
				Msg("Article analysis failed")
			continue
		}

		summary.Analyzed++
		if result.IllustrationScore >= models.HighPotentialScore {
			summary.HighPotential++
		}

		names := make([]string, 0, len(themes))
		for _, t := range themes {
			names = append(names, t.Name)
		}
		summary.Articles = append(summary.Articles, models.AnalyzedArticle{
			ID:     article.ID,
			Title:  utils.Truncate(article.Title, reportTitleLimit, "..."),
			Score:  result.IllustrationScore,
			Themes: names,
		})

		a.log.Debug().
			Uint("article_id", article.ID).
			Int("score", result.IllustrationScore).
			Strs("themes", names).
			Msg("Article analyzed")
	}

	a.log.Info().
		Int("analyzed", summary.Analyzed).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Int("high_potential", summary.HighPotential).
		Dur("duration", time.Since(start)).
		Msg("Finished analysis batch")

	return summary, nil
}

func (a *Analyzer) analyze(ctx context.Context, article *models.Article) (models.AnalysisResult, []models.Theme, error) {
	raw, err := a.model.Complete(ctx, ai.Request{
		Prompt:    ai.BuildAnalysisPrompt(article),
		MaxTokens: ai.AnalysisMaxTokens,
	})
	if err != nil {
		return models.AnalysisResult{}, nil, err
	}

	result, err := ai.ParseAnalysis(raw)
	if err != nil {
		return models.AnalysisResult{}, nil, err
	}

	themes, err := a.store.SaveAnalysis(ctx, article.ID, result.IllustrationScore, result.Summary, result.Themes, a.now())
	if err != nil {
		return models.AnalysisResult{}, nil, fmt.Errorf("save analysis: %w", err)
	}
	return result, themes, nil
}

func (a *Analyzer) releaseLock(release cache.Release) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := release(ctx); err != nil {
		a.log.Error().Err(err).Msg("Failed to release analysis lock")
	}
}
