package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bilgisen/illustrate/internal/models"
)

// SourceConfig is one feed entry of the sources file.
type SourceConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Category string `yaml:"category"`
	Enabled  *bool  `yaml:"enabled"`
}

// IsEnabled defaults to true when the file does not say otherwise.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type sourcesFile struct {
	Sources []SourceConfig `yaml:"sources"`
}

// LoadSources reads feed definitions from a YAML file. Entries without a url
// are dropped; missing name and category fall back to "Unknown" and "general".
func LoadSources(path string) ([]SourceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}
	return ParseSources(data)
}

// ParseSources decodes the contents of a sources file.
func ParseSources(data []byte) ([]SourceConfig, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse sources file: %w", err)
	}

	sources := make([]SourceConfig, 0, len(file.Sources))
	for _, s := range file.Sources {
		s.URL = strings.TrimSpace(s.URL)
		if s.URL == "" {
			continue
		}
		if strings.TrimSpace(s.Name) == "" {
			s.Name = "Unknown"
		}
		if strings.TrimSpace(s.Category) == "" {
			s.Category = "general"
		}
		sources = append(sources, s)
	}
	return sources, nil
}

// ToModels converts the entries into unsaved sources.
func ToModels(entries []SourceConfig) []models.Source {
	out := make([]models.Source, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.Source{
			Name:     e.Name,
			URL:      e.URL,
			Category: e.Category,
			Enabled:  e.IsEnabled(),
		})
	}
	return out
}
