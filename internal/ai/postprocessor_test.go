package ai

import (
	"errors"
	"strings"
	"testing"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/models"
)

func TestParseAnalysis(t *testing.T) {
	raw := "```json\n" + `{"illustration_score": 92, "summary": "A town\nrebuilds.", "themes": ["Hope", "healing", "hope", " "], "explanation": "Clear parallel."}` + "\n```"

	got, err := ParseAnalysis(raw)
	if err != nil {
		t.Fatalf("ParseAnalysis() error = %v", err)
	}
	if got.IllustrationScore != 92 {
		t.Errorf("score = %d", got.IllustrationScore)
	}
	if got.Summary != "A town rebuilds." {
		t.Errorf("summary = %q", got.Summary)
	}
	if strings.Join(got.Themes, ",") != "hope,healing" {
		t.Errorf("themes = %v", got.Themes)
	}
}

func TestParseAnalysisScoreDefaults(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"missing", `{"summary": "x"}`, DefaultScore},
		{"too high", `{"illustration_score": 140}`, 100},
		{"negative", `{"illustration_score": -3}`, 0},
		{"fractional", `{"illustration_score": 77.8}`, 77},
		{"huge", `{"illustration_score": 1e300}`, 100},
		{"huge negative", `{"illustration_score": -1e300}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAnalysis(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got.IllustrationScore != tt.want {
				t.Errorf("score = %d, want %d", got.IllustrationScore, tt.want)
			}
		})
	}

	if _, err := ParseAnalysis("not json"); !errors.Is(err, errs.ErrModelResponseParse) {
		t.Errorf("expected ErrModelResponseParse, got %v", err)
	}
}

func TestParseRerank(t *testing.T) {
	results, err := ParseRerank(`{"results": [{"article_id": 3, "relevance_score": 120, "connection": "Strong."}, {"article_id": 1, "relevance_score": 55, "connection": "Okay."}]}`)
	if err != nil {
		t.Fatalf("ParseRerank() error = %v", err)
	}
	if len(results) != 2 || results[0].ArticleID != 3 || results[0].RelevanceScore != 100 {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestParseRerankDropsMalformedEntries(t *testing.T) {
	raw := `{"results": [
		{"article_id": -1, "relevance_score": 90, "connection": "Negative."},
		{"article_id": "abc", "relevance_score": 90, "connection": "Word."},
		{"article_id": 2.5, "relevance_score": 90, "connection": "Fraction."},
		"not an object",
		{"article_id": 7, "relevance_score": 87.5, "connection": "Valid."},
		{"article_id": "8", "relevance_score": "oops", "connection": "Quoted id."},
		{"article_id": 9, "relevance_score": 1e300}
	]}`

	results, err := ParseRerank(raw)
	if err != nil {
		t.Fatalf("ParseRerank() error = %v", err)
	}
	want := []RankedArticle{
		{ArticleID: 7, RelevanceScore: 88, Connection: "Valid."},
		{ArticleID: 8, RelevanceScore: 0, Connection: "Quoted id."},
		{ArticleID: 9, RelevanceScore: 100},
	}
	if len(results) != len(want) {
		t.Fatalf("results = %+v", results)
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result %d = %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery(`{"themes": ["Perseverance", "Hope"], "concepts": ["struggle"], "sermon_angle": "Stories of endurance"}`)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(q.Themes, ",") != "perseverance,hope" || q.SermonAngle != "Stories of endurance" {
		t.Errorf("unexpected query analysis: %+v", q)
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	long := strings.Repeat("a", AnalysisBodyLimit+50)
	a := &models.Article{Title: "Flood Recovery", Summary: "short summary", Content: long}

	prompt := BuildAnalysisPrompt(a)
	if !strings.Contains(prompt, "Source: Unknown") || !strings.Contains(prompt, "Category: general") {
		t.Error("missing source/category defaults")
	}
	if !strings.Contains(prompt, strings.Repeat("a", AnalysisBodyLimit)+"...") {
		t.Error("content should be truncated with a marker")
	}
	if strings.Contains(prompt, strings.Repeat("a", AnalysisBodyLimit+1)) {
		t.Error("content longer than the limit leaked into the prompt")
	}
	if strings.Contains(prompt, "short summary") {
		t.Error("content should be preferred over summary")
	}

	a = &models.Article{Title: "Only a title", Source: &models.Source{Name: "GNN", Category: "positive"}}
	prompt = BuildAnalysisPrompt(a)
	if !strings.Contains(prompt, "Article Content:\nOnly a title") || !strings.Contains(prompt, "Source: GNN") {
		t.Errorf("unexpected prompt:\n%s", prompt)
	}
}

func TestDigest(t *testing.T) {
	articles := []models.Article{
		{ID: 4, Title: "Neighbors", Summary: strings.Repeat("s", 200), Themes: []models.Theme{{Name: "community"}, {Name: "hope"}}},
		{ID: 9, Title: "Rescue", Summary: "raw", AISummary: "ai"},
	}
	lines := strings.Split(Digest(articles), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	want := "[4] Neighbors | " + strings.Repeat("s", DigestSummaryLimit) + " | Themes: community, hope"
	if lines[0] != want {
		t.Errorf("line 0 = %q", lines[0])
	}
	if lines[1] != "[9] Rescue | ai | Themes: " {
		t.Errorf("line 1 = %q", lines[1])
	}
}
