package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/bilgisen/illustrate/internal/ai"
	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/storage"
)

const queryReply = `{"themes":["perseverance","hope"],"concepts":["struggle"],"sermon_angle":"Endurance stories"}`

var digestLine = regexp.MustCompile(`(?m)^\[\d+\] `)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("storage.Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.SeedThemes(context.Background(), models.DefaultThemes); err != nil {
		t.Fatal(err)
	}
	return s
}

func addScored(t *testing.T, s *storage.Store, src *models.Source, n, score int, themes ...string) *models.Article {
	t.Helper()
	ctx := context.Background()
	published := time.Now().Add(-3 * time.Hour)
	a := &models.Article{
		SourceID:    src.ID,
		Title:       fmt.Sprintf("Story %d", n),
		URL:         fmt.Sprintf("%s/%d", src.URL, n),
		Summary:     "summary",
		PublishedAt: &published,
		FetchedAt:   time.Now(),
	}
	if err := s.CreateArticle(ctx, a); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SaveAnalysis(ctx, a.ID, score, fmt.Sprintf("ai summary %d", n), themes, time.Now()); err != nil {
		t.Fatal(err)
	}
	return a
}

func newSource(t *testing.T, s *storage.Store, name, category string) *models.Source {
	t.Helper()
	src, err := s.AddSource(context.Background(), name, "https://"+name+".test/rss", category)
	if err != nil {
		t.Fatal(err)
	}
	return src
}

func TestSearchEmptyQuery(t *testing.T) {
	model := ai.NewMockModel()
	_, err := New(newTestStore(t), model).Search(context.Background(), Options{Query: "   "})
	if !errors.Is(err, errs.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if model.Calls() != 0 {
		t.Error("model should not be called for an empty query")
	}
}

func TestSearchNoCandidatesSkipsRerank(t *testing.T) {
	model := ai.NewMockModel(ai.Reply(queryReply))
	results, err := New(newTestStore(t), model).Search(context.Background(), Options{Query: "staying faithful"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("results = %v, want empty slice", results)
	}
	if model.Calls() != 1 {
		t.Errorf("model calls = %d, want 1", model.Calls())
	}
}

func TestSearchRerankWindow(t *testing.T) {
	s := newTestStore(t)
	src := newSource(t, s, "wire", "world")
	for i := 0; i < 25; i++ {
		addScored(t, s, src, i, 50+i, "hope")
	}

	model := ai.NewMockModel(ai.Reply(queryReply), ai.Reply(`{"results":[]}`))
	results, err := New(s, model).Search(context.Background(), Options{Query: "hope in hard times"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("results = %v", results)
	}

	prompts := model.Prompts()
	if len(prompts) != 2 {
		t.Fatalf("model calls = %d, want 2", len(prompts))
	}
	if n := len(digestLine.FindAllString(prompts[1], -1)); n != rerankWindow {
		t.Errorf("digest lines = %d, want %d", n, rerankWindow)
	}
}

func TestSearchDropsUnknownIDsAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	src := newSource(t, s, "wire", "world")
	low := addScored(t, s, src, 1, 60, "perseverance")
	high := addScored(t, s, src, 2, 90, "hope")
	other := addScored(t, s, src, 3, 70, "grace")

	rerank := fmt.Sprintf(`{"results":[
		{"article_id": %d, "relevance_score": 88, "connection": "Keeps going."},
		{"article_id": 9999, "relevance_score": 95, "connection": "Invented."},
		{"article_id": %d, "relevance_score": 75, "connection": "Hopeful."},
		{"article_id": %d, "relevance_score": 70, "connection": "Repeated."}
	]}`, low.ID, high.ID, low.ID)

	model := ai.NewMockModel(ai.Reply(queryReply), ai.Reply(rerank))
	results, err := New(s, model).Search(ctx, Options{Query: "keep going"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	if results[0].ArticleID != low.ID || results[1].ArticleID != high.ID {
		t.Errorf("order = %d,%d", results[0].ArticleID, results[1].ArticleID)
	}

	r := results[0]
	if r.RelevanceScore != 88 || r.Connection != "Keeps going." || r.Source != "wire" || r.Category != "world" {
		t.Errorf("result = %+v", r)
	}
	if r.Summary != "ai summary 1" || r.IllustrationScore != 60 || r.Published != "3 hours ago" {
		t.Errorf("display fields = %+v", r)
	}

	// Pass B brings in the grace article, it comes after the theme matches.
	digest := model.Prompts()[1]
	idx := func(id uint) int {
		loc := regexp.MustCompile(fmt.Sprintf(`\[%d\] `, id)).FindStringIndex(digest)
		if loc == nil {
			t.Fatalf("article %d missing from digest", id)
		}
		return loc[0]
	}
	if !(idx(high.ID) < idx(low.ID) && idx(low.ID) < idx(other.ID)) {
		t.Errorf("candidate order wrong:\n%s", digest)
	}
}

func TestSearchToleratesMalformedRerankEntries(t *testing.T) {
	s := newTestStore(t)
	src := newSource(t, s, "wire", "world")
	valid := addScored(t, s, src, 1, 80, "hope")

	tests := []struct {
		name      string
		rerank    string
		relevance int
	}{
		{"negative id", `{"results":[{"article_id": -1, "relevance_score": 99}, {"article_id": %d, "relevance_score": 81}]}`, 81},
		{"word id", `{"results":[{"article_id": "abc", "relevance_score": 99}, {"article_id": %d, "relevance_score": 81}]}`, 81},
		{"fractional score", `{"results":[{"article_id": %d, "relevance_score": 87.5}]}`, 88},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := ai.NewMockModel(ai.Reply(queryReply), ai.Reply(fmt.Sprintf(tt.rerank, valid.ID)))
			results, err := New(s, model).Search(context.Background(), Options{Query: "hope"})
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if len(results) != 1 || results[0].ArticleID != valid.ID || results[0].RelevanceScore != tt.relevance {
				t.Errorf("results = %+v", results)
			}
		})
	}
}

func TestSearchLimitAndCategory(t *testing.T) {
	s := newTestStore(t)
	world := newSource(t, s, "wire", "world")
	faith := newSource(t, s, "church", "faith")
	a := addScored(t, s, faith, 1, 80, "hope")
	b := addScored(t, s, faith, 2, 70, "hope")
	addScored(t, s, world, 3, 99, "hope")

	rerank := fmt.Sprintf(`{"results":[{"article_id":%d,"relevance_score":90,"connection":"x"},{"article_id":%d,"relevance_score":80,"connection":"y"}]}`, b.ID, a.ID)
	model := ai.NewMockModel(ai.Reply(queryReply), ai.Reply(rerank))

	results, err := New(s, model).Search(context.Background(), Options{Query: "hope", Limit: 1, Category: "faith"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ArticleID != b.ID {
		t.Errorf("results = %+v", results)
	}
	if n := len(digestLine.FindAllString(model.Prompts()[1], -1)); n != 2 {
		t.Errorf("digest lines = %d, want 2 (category filter)", n)
	}
}

func TestSearchMinScore(t *testing.T) {
	s := newTestStore(t)
	src := newSource(t, s, "wire", "world")
	addScored(t, s, src, 1, 40, "hope")

	model := ai.NewMockModel(ai.Reply(queryReply))
	results, err := New(s, model).Search(context.Background(), Options{Query: "hope", MinScore: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 || model.Calls() != 1 {
		t.Errorf("results = %v, calls = %d", results, model.Calls())
	}
}

func TestSearchModelFailuresAbort(t *testing.T) {
	s := newTestStore(t)
	src := newSource(t, s, "wire", "world")
	addScored(t, s, src, 1, 80, "hope")

	_, err := New(s, ai.NewMockModel(ai.Reply("no json here"))).Search(context.Background(), Options{Query: "hope"})
	if !errors.Is(err, errs.ErrModelResponseParse) {
		t.Errorf("query parse: expected ErrModelResponseParse, got %v", err)
	}

	model := ai.NewMockModel(ai.Reply(queryReply), ai.MockReply{Err: fmt.Errorf("boom: %w", errs.ErrModelCall)})
	_, err = New(s, model).Search(context.Background(), Options{Query: "hope"})
	if !errors.Is(err, errs.ErrModelCall) {
		t.Errorf("rerank call: expected ErrModelCall, got %v", err)
	}
}
