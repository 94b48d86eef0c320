package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bilgisen/illustrate/internal/models"
)

// SeedThemes inserts the themes not present yet and returns how many were added.
func (s *Store) SeedThemes(ctx context.Context, themes []models.Theme) (int, error) {
	added := 0
	for _, t := range themes {
		var existing models.Theme
		err := s.conn(ctx).Where("name = ?", t.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return added, fmt.Errorf("query theme %s: %w", t.Name, err)
		}

		theme := models.Theme{Name: t.Name, Description: t.Description}
		if err := s.conn(ctx).Create(&theme).Error; err != nil {
			return added, fmt.Errorf("create theme %s: %w", t.Name, err)
		}
		added++
	}
	return added, nil
}

func (s *Store) ListThemes(ctx context.Context) ([]models.Theme, error) {
	var themes []models.Theme
	if err := s.conn(ctx).Order("name asc").Find(&themes).Error; err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return themes, nil
}

// FindThemesByNames matches names case-insensitively; unknown names are ignored.
func (s *Store) FindThemesByNames(ctx context.Context, names []string) ([]models.Theme, error) {
	lowered := lowerAll(names)
	if len(lowered) == 0 {
		return nil, nil
	}
	var themes []models.Theme
	if err := s.conn(ctx).Where("LOWER(name) IN ?", lowered).Order("name asc").Find(&themes).Error; err != nil {
		return nil, fmt.Errorf("find themes: %w", err)
	}
	return themes, nil
}
