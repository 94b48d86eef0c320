package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/models"
)

var validate = validator.New()

// AddSource registers a new feed. Category defaults to general.
func (s *Store) AddSource(ctx context.Context, name, url, category string) (*models.Source, error) {
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	category = strings.TrimSpace(category)

	if name == "" {
		return nil, errs.Validation("source name is required")
	}
	if url == "" {
		return nil, errs.Validation("source url is required")
	}
	if err := validate.Var(url, "http_url"); err != nil {
		return nil, errs.Validation("source url %q is not a valid http(s) url", url)
	}
	if category == "" {
		category = "general"
	}

	source := &models.Source{Name: name, URL: url, Category: category, Enabled: true}
	err := s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.FindSourceByURL(ctx, url); err == nil {
			return errs.Validation("source with url %s already exists", url)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}
		return tx.CreateSource(ctx, source)
	})
	if err != nil {
		return nil, err
	}
	return source, nil
}

// CreateSource inserts a source as given.
func (s *Store) CreateSource(ctx context.Context, source *models.Source) error {
	if err := s.conn(ctx).Create(source).Error; err != nil {
		return fmt.Errorf("create source: %w", err)
	}
	return nil
}

// ImportSources creates every source whose url is not stored yet.
func (s *Store) ImportSources(ctx context.Context, sources []models.Source) (added, skipped int, err error) {
	for i := range sources {
		src := sources[i]
		_, err := s.FindSourceByURL(ctx, src.URL)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, errs.ErrNotFound) {
			return added, skipped, err
		}
		src.ID = 0
		if err := s.CreateSource(ctx, &src); err != nil {
			return added, skipped, err
		}
		added++
	}
	return added, skipped, nil
}

func (s *Store) GetSource(ctx context.Context, id uint) (*models.Source, error) {
	var source models.Source
	if err := s.conn(ctx).First(&source, id).Error; err != nil {
		return nil, notFound(err, "source", id)
	}
	return &source, nil
}

func (s *Store) FindSourceByURL(ctx context.Context, url string) (*models.Source, error) {
	var source models.Source
	if err := s.conn(ctx).Where("url = ?", url).First(&source).Error; err != nil {
		return nil, notFound(err, "source", url)
	}
	return &source, nil
}

// FindSourceByName returns the first source whose name contains name, ignoring case.
func (s *Store) FindSourceByName(ctx context.Context, name string) (*models.Source, error) {
	var source models.Source
	pattern := "%" + strings.ToLower(strings.TrimSpace(name)) + "%"
	if err := s.conn(ctx).Where("LOWER(name) LIKE ?", pattern).Order("name asc, id asc").First(&source).Error; err != nil {
		return nil, notFound(err, "source", name)
	}
	return &source, nil
}

// ListSources orders by category then name.
func (s *Store) ListSources(ctx context.Context, enabledOnly bool) ([]models.Source, error) {
	q := s.conn(ctx).Model(&models.Source{})
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	var list []models.Source
	if err := q.Order("category asc, name asc").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return list, nil
}

func (s *Store) SetSourceEnabled(ctx context.Context, id uint, enabled bool) (*models.Source, error) {
	res := s.conn(ctx).Model(&models.Source{}).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return nil, fmt.Errorf("update source: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, errs.NotFound("source", id)
	}
	return s.GetSource(ctx, id)
}

// DeleteSource removes a source together with its articles and their theme links.
func (s *Store) DeleteSource(ctx context.Context, id uint) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if _, err := tx.GetSource(ctx, id); err != nil {
			return err
		}
		articleIDs := tx.conn(ctx).Model(&models.Article{}).Select("id").Where("source_id = ?", id)
		if err := tx.conn(ctx).Exec("DELETE FROM article_themes WHERE article_id IN (?)", articleIDs).Error; err != nil {
			return fmt.Errorf("delete theme links: %w", err)
		}
		if err := tx.conn(ctx).Where("source_id = ?", id).Delete(&models.Article{}).Error; err != nil {
			return fmt.Errorf("delete articles: %w", err)
		}
		if err := tx.conn(ctx).Delete(&models.Source{}, id).Error; err != nil {
			return fmt.Errorf("delete source: %w", err)
		}
		return nil
	})
}

// RecordFetchSuccess stamps the fetch time and clears the last error.
func (s *Store) RecordFetchSuccess(ctx context.Context, id uint, now time.Time) error {
	return s.updateSource(ctx, id, map[string]interface{}{
		"last_fetched": now,
		"fetch_error":  nil,
	})
}

// RecordFetchError stamps the fetch time and stores the failure description.
func (s *Store) RecordFetchError(ctx context.Context, id uint, msg string, now time.Time) error {
	return s.updateSource(ctx, id, map[string]interface{}{
		"last_fetched": now,
		"fetch_error":  msg,
	})
}

func (s *Store) updateSource(ctx context.Context, id uint, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(&models.Source{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("update source: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("source", id)
	}
	return nil
}

func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errs.NotFound(entity, id)
	}
	return fmt.Errorf("query %s %v: %w", entity, id, err)
}
