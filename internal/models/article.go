package models

import (
	"fmt"
	"time"
)

// Source is a configured feed endpoint.
type Source struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Name        string     `gorm:"size:255;not null" json:"name"`
	URL         string     `gorm:"size:512;not null;uniqueIndex" json:"url"`
	Category    string     `gorm:"size:50;not null;index" json:"category"`
	Enabled     bool       `gorm:"not null;index" json:"enabled"`
	LastFetched *time.Time `json:"last_fetched,omitempty"`
	FetchError  *string    `json:"fetch_error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Articles []Article `gorm:"constraint:OnDelete:CASCADE;" json:"-"`
}

// Article is a stored news item, unique by URL.
type Article struct {
	ID       uint    `gorm:"primaryKey" json:"id"`
	SourceID uint    `gorm:"not null;index" json:"source_id"`
	Source   *Source `json:"-"`

	Title   string `gorm:"size:512;not null" json:"title"`
	URL     string `gorm:"size:1024;not null;uniqueIndex" json:"url"`
	Summary string `json:"summary,omitempty"`
	Content string `json:"content,omitempty"`
	Author  string `gorm:"size:255" json:"author,omitempty"`

	PublishedAt *time.Time `gorm:"index" json:"published_at,omitempty"`
	FetchedAt   time.Time  `json:"fetched_at"`

	IllustrationScore *int       `gorm:"index" json:"illustration_score,omitempty"`
	AISummary         string     `json:"ai_summary,omitempty"`
	AnalyzedAt        *time.Time `json:"analyzed_at,omitempty"`

	Bookmarked bool   `gorm:"not null;default:false;index" json:"bookmarked"`
	Notes      string `json:"notes,omitempty"`

	Themes []Theme `gorm:"many2many:article_themes;constraint:OnDelete:CASCADE;" json:"-"`
}

// Theme is an entry of the controlled vocabulary.
type Theme struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description string `json:"description"`
}

// SourceName reads through the loaded Source; empty when it was not loaded.
func (a *Article) SourceName() string {
	if a.Source == nil {
		return ""
	}
	return a.Source.Name
}

// Category reads through the loaded Source; empty when it was not loaded.
func (a *Article) Category() string {
	if a.Source == nil {
		return ""
	}
	return a.Source.Category
}

// ThemeNames lists the names of the loaded theme associations.
func (a *Article) ThemeNames() []string {
	names := make([]string, 0, len(a.Themes))
	for _, t := range a.Themes {
		names = append(names, t.Name)
	}
	return names
}

// DisplaySummary prefers the AI summary over the feed summary.
func (a *Article) DisplaySummary() string {
	if a.AISummary != "" {
		return a.AISummary
	}
	return a.Summary
}

// Score returns the illustration score, 0 when the article is unscored.
func (a *Article) Score() int {
	if a.IllustrationScore == nil {
		return 0
	}
	return *a.IllustrationScore
}

// View builds the display representation of an article.
func (a *Article) View(now time.Time) ArticleView {
	return ArticleView{
		ID:                a.ID,
		Title:             a.Title,
		URL:               a.URL,
		Summary:           a.DisplaySummary(),
		Source:            orDefault(a.SourceName(), "Unknown"),
		Category:          orDefault(a.Category(), "general"),
		Published:         FormatPublished(a.PublishedAt, now),
		IllustrationScore: a.Score(),
		Themes:            a.ThemeNames(),
		Bookmarked:        a.Bookmarked,
		Notes:             a.Notes,
	}
}

// ArticleView is what listing endpoints return.
type ArticleView struct {
	ID                uint     `json:"id"`
	Title             string   `json:"title"`
	URL               string   `json:"url"`
	Summary           string   `json:"summary"`
	Source            string   `json:"source"`
	Category          string   `json:"category"`
	Published         string   `json:"published"`
	IllustrationScore int      `json:"illustration_score"`
	Themes            []string `json:"themes"`
	Bookmarked        bool     `json:"bookmarked"`
	Notes             string   `json:"notes,omitempty"`
}

// FormatPublished renders a publication time relative to now.
func FormatPublished(published *time.Time, now time.Time) string {
	if published == nil {
		return "Unknown"
	}

	delta := now.Sub(*published)
	if delta < 0 {
		return "Just now"
	}

	days := int(delta / (24 * time.Hour))
	switch {
	case days > 7:
		return published.Format("Jan 02, 2006")
	case days > 0:
		return fmt.Sprintf("%d %s ago", days, plural(days, "day"))
	}

	seconds := int(delta / time.Second)
	switch {
	case seconds > 3600:
		hours := seconds / 3600
		return fmt.Sprintf("%d %s ago", hours, plural(hours, "hour"))
	case seconds > 60:
		return fmt.Sprintf("%d min ago", seconds/60)
	default:
		return "Just now"
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
