package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/analyzer"
	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/feed"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/middleware"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/search"
	"github.com/bilgisen/illustrate/internal/storage"
)

const maxListLimit = 200

// Services are the components the handlers drive. Analyzer and Search are
// nil when no model is configured.
type Services struct {
	Store     *storage.Store
	Refresher *feed.Refresher
	Analyzer  *analyzer.Analyzer
	Search    *search.Engine
}

type Handlers struct {
	config    *config.Config
	svc       Services
	validator *middleware.Validator
	now       func() time.Time
	log       zerolog.Logger
}

func NewHandlers(cfg *config.Config, svc Services) *Handlers {
	return &Handlers{
		config:    cfg,
		svc:       svc,
		validator: middleware.NewValidator(),
		now:       time.Now,
		log:       logger.Component("api"),
	}
}

type listQuery struct {
	Category   string `query:"category"`
	Bookmarked bool   `query:"bookmarked"`
	MinScore   int    `query:"min_score" validate:"min=0,max=100"`
	Limit      int    `query:"limit" validate:"min=0,max=200"`
}

type searchQuery struct {
	Q        string `query:"q" validate:"required"`
	Limit    int    `query:"limit" validate:"min=0,max=100"`
	Category string `query:"category"`
	MinScore int    `query:"min_score" validate:"min=0,max=100"`
}

type addSourceRequest struct {
	Name     string `json:"name" validate:"required"`
	URL      string `json:"url" validate:"required,http_url"`
	Category string `json:"category"`
}

type updateSourceRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type notesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

// articleDetail is the single-article view, with the stored text.
type articleDetail struct {
	models.ArticleView
	Author     string     `json:"author,omitempty"`
	Content    string     `json:"content,omitempty"`
	AISummary  string     `json:"ai_summary,omitempty"`
	AnalyzedAt *time.Time `json:"analyzed_at,omitempty"`
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "ok",
		"version":  "1.0.0",
		"time":     h.now().Format(time.RFC3339),
		"analysis": h.svc.Analyzer != nil,
	})
}

// ListArticles handles GET /api/v1/articles
func (h *Handlers) ListArticles(c *fiber.Ctx) error {
	var q listQuery
	if err := h.validator.BindQuery(c, &q); err != nil {
		return err
	}

	articles, err := h.svc.Store.ListArticles(c.UserContext(), storage.ArticleFilter{
		Category:       q.Category,
		BookmarkedOnly: q.Bookmarked,
		MinScore:       q.MinScore,
		Limit:          limitOr(q.Limit, 50),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"articles": h.views(articles)})
}

// TopArticles handles GET /api/v1/articles/top
func (h *Handlers) TopArticles(c *fiber.Ctx) error {
	var q listQuery
	if err := h.validator.BindQuery(c, &q); err != nil {
		return err
	}
	articles, err := h.svc.Store.TopScored(c.UserContext(), q.Category, q.MinScore, limitOr(q.Limit, 20))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"articles": h.views(articles)})
}

// GetArticle handles GET /api/v1/articles/:id
func (h *Handlers) GetArticle(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Store.GetArticle(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(articleDetail{
		ArticleView: a.View(h.now()),
		Author:      a.Author,
		Content:     a.Content,
		AISummary:   a.AISummary,
		AnalyzedAt:  a.AnalyzedAt,
	})
}

// ToggleBookmark handles POST /api/v1/articles/:id/bookmark
func (h *Handlers) ToggleBookmark(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	state, err := h.svc.Store.ToggleBookmark(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "bookmarked": state})
}

// SetNotes handles PUT /api/v1/articles/:id/notes
func (h *Handlers) SetNotes(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req notesRequest
	if err := h.validator.BindBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.Store.SetNotes(c.UserContext(), id, req.Notes); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"id": id, "notes": req.Notes})
}

// ListSources handles GET /api/v1/sources
func (h *Handlers) ListSources(c *fiber.Ctx) error {
	sources, err := h.svc.Store.ListSources(c.UserContext(), false)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"sources": sources})
}

// Stats handles GET /api/v1/stats
func (h *Handlers) Stats(c *fiber.Ctx) error {
	stats, err := h.svc.Store.Stats(c.UserContext(), h.now())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// Search handles GET /api/v1/search
func (h *Handlers) Search(c *fiber.Ctx) error {
	if h.svc.Search == nil {
		return errs.ErrModelUnavailable
	}
	var q searchQuery
	if err := h.validator.BindQuery(c, &q); err != nil {
		return err
	}

	results, err := h.svc.Search.Search(c.UserContext(), search.Options{
		Query:    q.Q,
		Limit:    limitOr(q.Limit, h.config.SearchDefaultLimit),
		Category: q.Category,
		MinScore: q.MinScore,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"query": q.Q, "results": results})
}

// Init handles POST /api/v1/admin/init
func (h *Handlers) Init(c *fiber.Ctx) error {
	entries, err := config.LoadSources(h.config.SourcesFile)
	if err != nil {
		return err
	}
	summary, err := h.svc.Store.Init(c.UserContext(), config.ToModels(entries))
	if err != nil {
		return err
	}

	h.log.Info().
		Int("sources_added", summary.SourcesAdded).
		Int("sources_skipped", summary.SourcesSkipped).
		Int("themes_added", summary.ThemesAdded).
		Msg("Database initialized")
	return c.JSON(summary)
}

// AddSource handles POST /api/v1/admin/sources
func (h *Handlers) AddSource(c *fiber.Ctx) error {
	var req addSourceRequest
	if err := h.validator.BindBody(c, &req); err != nil {
		return err
	}
	src, err := h.svc.Store.AddSource(c.UserContext(), req.Name, req.URL, req.Category)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(src)
}

// UpdateSource handles PATCH /api/v1/admin/sources/:id
func (h *Handlers) UpdateSource(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	var req updateSourceRequest
	if err := h.validator.BindBody(c, &req); err != nil {
		return err
	}
	src, err := h.svc.Store.SetSourceEnabled(c.UserContext(), id, *req.Enabled)
	if err != nil {
		return err
	}
	return c.JSON(src)
}

// DeleteSource handles DELETE /api/v1/admin/sources/:id
func (h *Handlers) DeleteSource(c *fiber.Ctx) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Store.DeleteSource(c.UserContext(), id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "deleted",
		"message": "Source and its articles deleted",
	})
}

// Refresh handles POST /api/v1/admin/refresh
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	summary, err := h.svc.Refresher.RefreshAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

// FetchSource handles POST /api/v1/admin/sources/fetch?name=
func (h *Handlers) FetchSource(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return errs.Validation("name is required")
	}
	src, summary, err := h.svc.Refresher.FetchOne(c.UserContext(), name)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"source": src.Name, "summary": summary})
}

// Analyze handles POST /api/v1/admin/analyze?limit=
func (h *Handlers) Analyze(c *fiber.Ctx) error {
	if h.svc.Analyzer == nil {
		return errs.ErrModelUnavailable
	}
	limit := c.QueryInt("limit", h.config.AnalyzeDefaultLimit)
	if limit <= 0 || limit > maxListLimit {
		return errs.Validation("limit must be between 1 and %d", maxListLimit)
	}

	summary, err := h.svc.Analyzer.AnalyzeBatch(c.UserContext(), limit)
	if err != nil {
		return err
	}
	return c.JSON(summary)
}

func (h *Handlers) views(articles []models.Article) []models.ArticleView {
	now := h.now()
	out := make([]models.ArticleView, 0, len(articles))
	for i := range articles {
		out = append(out, articles[i].View(now))
	}
	return out
}

func idParam(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errs.Validation("invalid id %q", c.Params("id"))
	}
	return uint(id), nil
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
