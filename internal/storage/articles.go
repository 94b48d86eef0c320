package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/models"
)

// ArticleFilter narrows ListArticles. Zero values disable a filter.
type ArticleFilter struct {
	Category       string
	BookmarkedOnly bool
	MinScore       int
	Limit          int
}

const (
	orderPublishedDesc = "articles.published_at IS NULL, articles.published_at DESC, articles.id DESC"
	orderScoreDesc     = "articles.illustration_score IS NULL, articles.illustration_score DESC, articles.id DESC"
)

func (s *Store) FindArticleByURL(ctx context.Context, url string) (*models.Article, error) {
	var article models.Article
	if err := s.conn(ctx).Where("url = ?", url).First(&article).Error; err != nil {
		return nil, notFound(err, "article", url)
	}
	return &article, nil
}

func (s *Store) CreateArticle(ctx context.Context, article *models.Article) error {
	if err := s.conn(ctx).Omit("Source", "Themes").Create(article).Error; err != nil {
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

func (s *Store) SetArticleContent(ctx context.Context, id uint, content string) error {
	res := s.conn(ctx).Model(&models.Article{}).Where("id = ?", id).Update("content", content)
	if res.Error != nil {
		return fmt.Errorf("update article content: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("article", id)
	}
	return nil
}

// GetArticle loads an article with its source and themes.
func (s *Store) GetArticle(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.withRelations(s.conn(ctx)).First(&article, id).Error; err != nil {
		return nil, notFound(err, "article", id)
	}
	return &article, nil
}

// ListArticles returns articles newest first, unpublished ones last.
func (s *Store) ListArticles(ctx context.Context, f ArticleFilter) ([]models.Article, error) {
	q := s.filtered(ctx, f.Category, f.MinScore)
	if f.BookmarkedOnly {
		q = q.Where("articles.bookmarked = ?", true)
	}
	return s.find(q.Order(orderPublishedDesc), f.Limit)
}

// TopScored returns scored articles, best first.
func (s *Store) TopScored(ctx context.Context, category string, minScore, limit int) ([]models.Article, error) {
	q := s.filtered(ctx, category, minScore).Where("articles.illustration_score IS NOT NULL")
	return s.find(q.Order(orderScoreDesc), limit)
}

// ByThemes returns scored articles linked to any of the named themes (case-insensitive), best first.
func (s *Store) ByThemes(ctx context.Context, names []string, category string, minScore, limit int) ([]models.Article, error) {
	lowered := lowerAll(names)
	if len(lowered) == 0 {
		return nil, nil
	}

	linked := s.conn(ctx).Table("article_themes").
		Select("article_themes.article_id").
		Joins("JOIN themes ON themes.id = article_themes.theme_id").
		Where("LOWER(themes.name) IN ?", lowered)

	q := s.filtered(ctx, category, minScore).
		Where("articles.illustration_score IS NOT NULL").
		Where("articles.id IN (?)", linked)
	return s.find(q.Order(orderScoreDesc), limit)
}

// ListUnanalyzed returns articles never analyzed that carry content or a summary, newest first.
func (s *Store) ListUnanalyzed(ctx context.Context, limit int) ([]models.Article, error) {
	q := s.conn(ctx).Model(&models.Article{}).
		Where("articles.analyzed_at IS NULL").
		Where("(articles.content IS NOT NULL AND articles.content != '') OR (articles.summary IS NOT NULL AND articles.summary != '')")
	return s.find(q.Order(orderPublishedDesc), limit)
}

// SaveAnalysis writes the score, summary and analysis time and replaces the
// theme links with the vocabulary entries matching themeNames.
func (s *Store) SaveAnalysis(ctx context.Context, id uint, score int, summary string, themeNames []string, now time.Time) ([]models.Theme, error) {
	var themes []models.Theme
	err := s.Transaction(ctx, func(tx *Store) error {
		res := tx.conn(ctx).Model(&models.Article{}).Where("id = ?", id).Updates(map[string]interface{}{
			"illustration_score": score,
			"ai_summary":         summary,
			"analyzed_at":        now,
		})
		if res.Error != nil {
			return fmt.Errorf("update analysis: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errs.NotFound("article", id)
		}

		var err error
		themes, err = tx.FindThemesByNames(ctx, themeNames)
		if err != nil {
			return err
		}

		assoc := tx.conn(ctx).Model(&models.Article{ID: id}).Association("Themes")
		if len(themes) == 0 {
			err = assoc.Clear()
		} else {
			err = assoc.Replace(themes)
		}
		if err != nil {
			return fmt.Errorf("replace themes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return themes, nil
}

// ToggleBookmark flips the bookmark flag and returns the new state.
func (s *Store) ToggleBookmark(ctx context.Context, id uint) (bool, error) {
	var state bool
	err := s.Transaction(ctx, func(tx *Store) error {
		var article models.Article
		if err := tx.conn(ctx).Select("id", "bookmarked").First(&article, id).Error; err != nil {
			return notFound(err, "article", id)
		}
		state = !article.Bookmarked
		if err := tx.conn(ctx).Model(&models.Article{}).Where("id = ?", id).Update("bookmarked", state).Error; err != nil {
			return fmt.Errorf("update bookmark: %w", err)
		}
		return nil
	})
	return state, err
}

func (s *Store) SetNotes(ctx context.Context, id uint, notes string) error {
	res := s.conn(ctx).Model(&models.Article{}).Where("id = ?", id).Update("notes", notes)
	if res.Error != nil {
		return fmt.Errorf("update notes: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("article", id)
	}
	return nil
}

func (s *Store) filtered(ctx context.Context, category string, minScore int) *gorm.DB {
	q := s.conn(ctx).Model(&models.Article{})
	if category != "" {
		inCategory := s.conn(ctx).Model(&models.Source{}).Select("id").Where("category = ?", category)
		q = q.Where("articles.source_id IN (?)", inCategory)
	}
	if minScore > 0 {
		q = q.Where("articles.illustration_score >= ?", minScore)
	}
	return q
}

func (s *Store) find(q *gorm.DB, limit int) ([]models.Article, error) {
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []models.Article
	if err := s.withRelations(q).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return list, nil
}

func (s *Store) withRelations(q *gorm.DB) *gorm.DB {
	return q.Preload("Source").Preload("Themes", func(db *gorm.DB) *gorm.DB {
		return db.Order("themes.name asc")
	})
}

func lowerAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
