package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bilgisen/illustrate/internal/models"
)

// Stats counts sources and articles for the overview. "Today" starts at
// midnight in now's location.
func (s *Store) Stats(ctx context.Context, now time.Time) (models.Stats, error) {
	stats := models.Stats{ByCategory: map[string]int64{}}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	counts := []struct {
		dst   *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&stats.SourcesTotal, &models.Source{}, "", nil},
		{&stats.SourcesEnabled, &models.Source{}, "enabled = ?", []interface{}{true}},
		{&stats.ArticlesTotal, &models.Article{}, "", nil},
		{&stats.ArticlesAnalyzed, &models.Article{}, "analyzed_at IS NOT NULL", nil},
		{&stats.ArticlesHighPotential, &models.Article{}, "illustration_score >= ?", []interface{}{models.HighPotentialScore}},
		{&stats.ArticlesBookmarked, &models.Article{}, "bookmarked = ?", []interface{}{true}},
		{&stats.ArticlesToday, &models.Article{}, "fetched_at >= ?", []interface{}{midnight}},
	}
	for _, c := range counts {
		q := s.conn(ctx).Model(c.model)
		if c.where != "" {
			q = q.Where(c.where, c.args...)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return models.Stats{}, fmt.Errorf("count: %w", err)
		}
	}

	var rows []struct {
		Category string
		Count    int64
	}
	err := s.conn(ctx).Model(&models.Article{}).
		Select("sources.category AS category, COUNT(articles.id) AS count").
		Joins("JOIN sources ON sources.id = articles.source_id").
		Group("sources.category").
		Scan(&rows).Error
	if err != nil {
		return models.Stats{}, fmt.Errorf("count by category: %w", err)
	}
	for _, r := range rows {
		stats.ByCategory[r.Category] = r.Count
	}

	return stats, nil
}
