package feed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "feed.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSource(t *testing.T, s *storage.Store, name, url string) *models.Source {
	t.Helper()
	src, err := s.AddSource(context.Background(), name, url, "world")
	if err != nil {
		t.Fatalf("AddSource() error = %v", err)
	}
	return src
}

func ago(now time.Time, d time.Duration) *time.Time {
	ts := now.Add(-d)
	return &ts
}

func TestMergeFeedScenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := newTestSource(t, s, "A", "https://a.test/rss")
	now := time.Now()

	published := now.Add(-2 * time.Hour)
	raw, err := Parse([]byte(rssFeed(
		rssItem{Title: "Flood Recovery", Link: "https://a.test/1", PubDate: &published},
		rssItem{Title: "Linkless"},
	)))
	if err != nil {
		t.Fatal(err)
	}

	counts, err := NewMerger(s, 30).Merge(ctx, src.ID, raw, now)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if counts.New != 1 || counts.Updated != 0 {
		t.Fatalf("counts = %+v, want 1 new", counts)
	}

	list, _ := s.ListArticles(ctx, storage.ArticleFilter{})
	if len(list) != 1 || list[0].Title != "Flood Recovery" {
		t.Fatalf("unexpected articles: %+v", list)
	}
}

func TestMergeAgeFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := newTestSource(t, s, "A", "https://a.test/rss")
	now := time.Now()

	raw := []models.RawArticle{
		{Title: "old", URL: "https://a.test/old", PublishedAt: ago(now, 31*24*time.Hour)},
		{Title: "recent", URL: "https://a.test/recent", PublishedAt: ago(now, 29*24*time.Hour)},
		{Title: "undated", URL: "https://a.test/undated"},
	}

	counts, err := NewMerger(s, 30).Merge(ctx, src.ID, raw, now)
	if err != nil {
		t.Fatal(err)
	}
	if counts.New != 2 {
		t.Errorf("New = %d, want 2", counts.New)
	}
	if _, err := s.FindArticleByURL(ctx, "https://a.test/old"); err == nil {
		t.Error("article older than the max age must not be created")
	}
}

func TestMergeIsIdempotentAndPatchesContentOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := newTestSource(t, s, "A", "https://a.test/rss")
	m := NewMerger(s, 30)
	now := time.Now()

	first := []models.RawArticle{
		{Title: "one", URL: "https://a.test/1", Summary: "first summary"},
		{Title: "two", URL: "https://a.test/2", Content: "body two"},
	}
	if counts, err := m.Merge(ctx, src.ID, first, now); err != nil || counts.New != 2 {
		t.Fatalf("first Merge() = %+v, %v", counts, err)
	}

	counts, err := m.Merge(ctx, src.ID, first, now)
	if err != nil {
		t.Fatal(err)
	}
	if counts.New != 0 || counts.Updated != 0 {
		t.Errorf("second merge counts = %+v, want zero", counts)
	}

	withContent := []models.RawArticle{
		{Title: "one renamed", URL: "https://a.test/1", Summary: "other summary", Content: "body one"},
		{Title: "two", URL: "https://a.test/2", Content: "replacement body"},
	}
	counts, err = m.Merge(ctx, src.ID, withContent, now)
	if err != nil {
		t.Fatal(err)
	}
	if counts.New != 0 || counts.Updated != 1 {
		t.Errorf("patch merge counts = %+v, want 1 updated", counts)
	}

	one, _ := s.FindArticleByURL(ctx, "https://a.test/1")
	if one.Content != "body one" || one.Title != "one" || one.Summary != "first summary" {
		t.Errorf("only missing content may change: %+v", one)
	}
	two, _ := s.FindArticleByURL(ctx, "https://a.test/2")
	if two.Content != "body two" {
		t.Errorf("existing content must not be overwritten, got %q", two.Content)
	}

	list, _ := s.ListArticles(ctx, storage.ArticleFilter{})
	if len(list) != 2 {
		t.Errorf("expected 2 articles, got %d", len(list))
	}
}

func TestMergeStampsSource(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := newTestSource(t, s, "A", "https://a.test/rss")
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	if err := s.RecordFetchError(ctx, src.ID, "Timeout fetching https://a.test/rss", now.Add(-time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMerger(s, 30).Merge(ctx, src.ID, nil, now); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetSource(ctx, src.ID)
	if got.FetchError != nil {
		t.Errorf("fetch error should be cleared, got %q", *got.FetchError)
	}
	if got.LastFetched == nil || !got.LastFetched.Equal(now) {
		t.Errorf("LastFetched = %v, want %v", got.LastFetched, now)
	}
}
