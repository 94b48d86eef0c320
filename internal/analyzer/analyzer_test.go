package analyzer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bilgisen/illustrate/internal/ai"
	"github.com/bilgisen/illustrate/internal/cache"
	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
)

var longText = strings.Repeat("A community came together after the flood. ", 5)

func setup(t *testing.T) (*storage.Store, *models.Source) {
	t.Helper()
	ctx := context.Background()
	s, err := storage.Open(filepath.Join(t.TempDir(), "analyzer.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if _, err := s.SeedThemes(ctx, models.DefaultThemes); err != nil {
		t.Fatal(err)
	}
	src, err := s.AddSource(ctx, "Good News", "https://good.test/rss", "positive")
	if err != nil {
		t.Fatal(err)
	}
	return s, src
}

func addArticle(t *testing.T, s *storage.Store, src *models.Source, url, content string, published time.Time) *models.Article {
	t.Helper()
	a := &models.Article{
		SourceID:    src.ID,
		Title:       "Article " + url,
		URL:         url,
		Content:     content,
		PublishedAt: &published,
		FetchedAt:   time.Now(),
	}
	if err := s.CreateArticle(context.Background(), a); err != nil {
		t.Fatalf("CreateArticle() error = %v", err)
	}
	return a
}

func TestAnalyzeBatchScenario(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	article := addArticle(t, s, src, "https://good.test/1", longText, time.Now())

	model := ai.NewMockModel(ai.Reply(`{"illustration_score":92,"summary":"Neighbors rebuild.","themes":["hope","healing"],"explanation":"Fits."}`))
	summary, err := New(s, model, 100, cache.NewMemoryLocker(), time.Minute).AnalyzeBatch(ctx, 1)
	if err != nil {
		t.Fatalf("AnalyzeBatch() error = %v", err)
	}
	if summary.Analyzed != 1 || summary.HighPotential != 1 || summary.Errors != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	got, err := s.GetArticle(ctx, article.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Score() != 92 || got.AnalyzedAt == nil || got.AISummary != "Neighbors rebuild." {
		t.Errorf("article not updated: %+v", got)
	}
	if names := strings.Join(got.ThemeNames(), ","); names != "healing,hope" {
		t.Errorf("themes = %s", names)
	}
	if !strings.Contains(model.Prompts()[0], "Source: Good News") {
		t.Error("prompt should name the source")
	}
}

func TestAnalyzeBatchDropsUnknownThemes(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	article := addArticle(t, s, src, "https://good.test/1", longText, time.Now())

	model := ai.NewMockModel(ai.Reply(`{"illustration_score":60,"themes":["Hope","courage","space travel"]}`))
	summary, err := New(s, model, 100, cache.NewMemoryLocker(), time.Minute).AnalyzeBatch(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetArticle(ctx, article.ID)
	if names := got.ThemeNames(); len(names) != 1 || names[0] != "hope" {
		t.Errorf("themes = %v, want [hope]", names)
	}
	if summary.HighPotential != 0 || len(summary.Articles) != 1 || len(summary.Articles[0].Themes) != 1 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestAnalyzeBatchSkipsShortText(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	addArticle(t, s, src, "https://good.test/short", "Too short.", time.Now())

	model := ai.NewMockModel()
	summary, err := New(s, model, 100, cache.NewMemoryLocker(), time.Minute).AnalyzeBatch(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 1 || summary.Analyzed != 0 || summary.Errors != 0 {
		t.Errorf("summary = %+v", summary)
	}
	if model.Calls() != 0 {
		t.Errorf("model called %d times for a skipped article", model.Calls())
	}
}

func TestAnalyzeBatchIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	now := time.Now()
	first := addArticle(t, s, src, "https://good.test/new", longText, now)
	second := addArticle(t, s, src, "https://good.test/old", longText, now.Add(-time.Hour))

	model := ai.NewMockModel(
		ai.MockReply{Err: errors.New("upstream overloaded")},
		ai.Reply(`{"illustration_score":40,"summary":"ok","themes":[]}`),
	)
	summary, err := New(s, model, 100, cache.NewMemoryLocker(), time.Minute).AnalyzeBatch(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Errors != 1 || summary.Analyzed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	failed, _ := s.GetArticle(ctx, first.ID)
	if failed.AnalyzedAt != nil || failed.IllustrationScore != nil {
		t.Error("failed article must stay unanalyzed")
	}
	done, _ := s.GetArticle(ctx, second.ID)
	if done.AnalyzedAt == nil {
		t.Error("second article should be analyzed")
	}

	pending, _ := s.ListUnanalyzed(ctx, 10)
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Errorf("pending = %v", pending)
	}
}

func TestAnalyzeBatchBadReplyCountsError(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	addArticle(t, s, src, "https://good.test/1", longText, time.Now())

	model := ai.NewMockModel(ai.Reply("I think this is a great article!"))
	summary, err := New(s, model, 100, cache.NewMemoryLocker(), time.Minute).AnalyzeBatch(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Errors != 1 || summary.Analyzed != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestAnalyzeBatchIdempotent(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	addArticle(t, s, src, "https://good.test/1", longText, time.Now())

	model := ai.NewMockModel(ai.Reply(`{"illustration_score":70,"themes":["grace"]}`))
	a := New(s, model, 100, cache.NewMemoryLocker(), time.Minute)
	if _, err := a.AnalyzeBatch(ctx, 5); err != nil {
		t.Fatal(err)
	}

	summary, err := a.AnalyzeBatch(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Message != "No articles to analyze" || summary.Analyzed != 0 {
		t.Errorf("second batch = %+v", summary)
	}
	if model.Calls() != 1 {
		t.Errorf("model calls = %d, want 1", model.Calls())
	}
}

func TestAnalyzeBatchReportTitle(t *testing.T) {
	ctx := context.Background()
	s, src := setup(t)
	published := time.Now()
	a := &models.Article{
		SourceID:    src.ID,
		Title:       strings.Repeat("t", 60),
		URL:         "https://good.test/long-title",
		Content:     longText,
		PublishedAt: &published,
		FetchedAt:   published,
	}
	if err := s.CreateArticle(ctx, a); err != nil {
		t.Fatal(err)
	}

	model := ai.NewMockModel(ai.Reply(`{"illustration_score":10}`))
	summary, err := New(s, model, 100, cache.NewMemoryLocker(), time.Minute).AnalyzeBatch(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := summary.Articles[0].Title; got != strings.Repeat("t", 50)+"..." {
		t.Errorf("title = %q", got)
	}
}

func TestAnalyzeBatchLockHeld(t *testing.T) {
	ctx := context.Background()
	s, _ := setup(t)
	locker := cache.NewMemoryLocker()
	release, err := locker.Acquire(ctx, cache.LockAnalyze, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer release(ctx)

	_, err = New(s, ai.NewMockModel(), 100, locker, time.Minute).AnalyzeBatch(ctx, 5)
	if !errors.Is(err, errs.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}
