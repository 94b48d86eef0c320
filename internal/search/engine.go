package search

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/ai"
	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
)

const (
	DefaultLimit = 20

	themePassLimit = 50
	topPassLimit   = 30
	// Pass B runs only when the theme pass finds fewer than this.
	fillThreshold = 20
	rerankWindow  = 20
)

// Options for one query. Zero Limit means DefaultLimit.
type Options struct {
	Query    string
	Limit    int
	Category string
	MinScore int
}

// Engine answers free-text queries with a theme lookup followed by a model rerank.
type Engine struct {
	store *storage.Store
	model ai.Model
	now   func() time.Time
	log   zerolog.Logger
}

func New(store *storage.Store, model ai.Model) *Engine {
	return &Engine{
		store: store,
		model: model,
		now:   time.Now,
		log:   logger.Component("search"),
	}
}

// Search returns reranked results in the model's order. Model failures abort
// the whole query.
func (e *Engine) Search(ctx context.Context, opts Options) ([]models.SearchResult, error) {
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return nil, errs.Validation("query must not be empty")
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	start := time.Now()

	raw, err := e.model.Complete(ctx, ai.Request{
		Prompt:    ai.BuildQueryPrompt(query),
		MaxTokens: ai.QueryMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	analysis, err := ai.ParseQuery(raw)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Str("query", query).
		Strs("themes", analysis.Themes).
		Str("angle", analysis.SermonAngle).
		Msg("Query analyzed")

	candidates, err := e.candidates(ctx, analysis.Themes, opts.Category, opts.MinScore)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		e.log.Info().Str("query", query).Msg("No search candidates")
		return []models.SearchResult{}, nil
	}

	window := candidates
	if len(window) > rerankWindow {
		window = window[:rerankWindow]
	}

	raw, err = e.model.Complete(ctx, ai.Request{
		Prompt:    ai.BuildRerankPrompt(query, window),
		MaxTokens: ai.RerankMaxTokens,
	})
	if err != nil {
		return nil, err
	}
	ranked, err := ai.ParseRerank(raw)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*models.Article, len(window))
	for i := range window {
		byID[window[i].ID] = &window[i]
	}

	now := e.now()
	results := make([]models.SearchResult, 0, len(ranked))
	seen := make(map[uint]bool, len(ranked))
	for _, r := range ranked {
		article, ok := byID[r.ArticleID]
		if !ok || seen[r.ArticleID] {
			continue
		}
		seen[r.ArticleID] = true
		results = append(results, toResult(article, r, now))
		if len(results) == limit {
			break
		}
	}

	e.log.Info().
		Str("query", query).
		Int("candidates", len(candidates)).
		Int("ranked", len(ranked)).
		Int("results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Search finished")

	return results, nil
}

// candidates runs the theme pass, then tops up with the best-scored articles
// when the theme pass comes back thin. Order of discovery is kept.
func (e *Engine) candidates(ctx context.Context, themes []string, category string, minScore int) ([]models.Article, error) {
	list, err := e.store.ByThemes(ctx, themes, category, minScore, themePassLimit)
	if err != nil {
		return nil, err
	}
	if len(list) >= fillThreshold {
		return list, nil
	}

	top, err := e.store.TopScored(ctx, category, minScore, topPassLimit)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(list)+len(top))
	for _, a := range list {
		seen[a.ID] = true
	}
	for _, a := range top {
		if !seen[a.ID] {
			seen[a.ID] = true
			list = append(list, a)
		}
	}
	return list, nil
}

func toResult(a *models.Article, r ai.RankedArticle, now time.Time) models.SearchResult {
	view := a.View(now)
	return models.SearchResult{
		ArticleID:         a.ID,
		Title:             view.Title,
		URL:               view.URL,
		Source:            view.Source,
		Category:          view.Category,
		Summary:           view.Summary,
		IllustrationScore: a.Score(),
		Themes:            view.Themes,
		RelevanceScore:    r.RelevanceScore,
		Connection:        r.Connection,
		Published:         view.Published,
	}
}
