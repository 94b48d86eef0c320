package ai

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/bilgisen/illustrate/internal/models"
)

// DefaultScore stands in when the model leaves the score out.
const DefaultScore = 50

var controlChars = regexp.MustCompile(`[\x00-\x1F\x7F]`)

type analysisPayload struct {
	IllustrationScore *float64 `json:"illustration_score"`
	Summary           string   `json:"summary"`
	Themes            []string `json:"themes"`
	Explanation       string   `json:"explanation"`
}

// RankedArticle is one entry of the rerank reply.
type RankedArticle struct {
	ArticleID      uint   `json:"article_id"`
	RelevanceScore int    `json:"relevance_score"`
	Connection     string `json:"connection"`
}

type rerankPayload struct {
	Results []json.RawMessage `json:"results"`
}

// rerankEntry is decoded per entry so a single malformed item is dropped on its own.
type rerankEntry struct {
	ArticleID      json.RawMessage `json:"article_id"`
	RelevanceScore json.RawMessage `json:"relevance_score"`
	Connection     string          `json:"connection"`
}

// ParseAnalysis decodes and normalizes the scoring reply.
func ParseAnalysis(raw string) (models.AnalysisResult, error) {
	payload, err := Decode[analysisPayload](raw)
	if err != nil {
		return models.AnalysisResult{}, err
	}

	score := DefaultScore
	if payload.IllustrationScore != nil {
		score = int(clampFloat(*payload.IllustrationScore))
	}

	return Normalize(models.AnalysisResult{
		IllustrationScore: score,
		Summary:           payload.Summary,
		Themes:            payload.Themes,
		Explanation:       payload.Explanation,
	}), nil
}

// ParseQuery decodes the query-analysis reply.
func ParseQuery(raw string) (models.QueryAnalysis, error) {
	q, err := Decode[models.QueryAnalysis](raw)
	if err != nil {
		return models.QueryAnalysis{}, err
	}
	q.Themes = NormalizeThemes(q.Themes)
	q.SermonAngle = cleanText(q.SermonAngle)
	return q, nil
}

// ParseRerank decodes the rerank reply. Entries without a positive integer
// article_id are dropped; scores are rounded and clamped to 0-100, a missing
// or unreadable score counting as 0.
func ParseRerank(raw string) ([]RankedArticle, error) {
	p, err := Decode[rerankPayload](raw)
	if err != nil {
		return nil, err
	}

	out := make([]RankedArticle, 0, len(p.Results))
	for _, item := range p.Results {
		var e rerankEntry
		if err := json.Unmarshal(item, &e); err != nil {
			continue
		}
		id, ok := number(e.ArticleID)
		if !ok || id < 1 || id != math.Trunc(id) || id > math.MaxUint32 {
			continue
		}
		score, _ := number(e.RelevanceScore)
		out = append(out, RankedArticle{
			ArticleID:      uint(id),
			RelevanceScore: int(math.Round(clampFloat(score))),
			Connection:     cleanText(e.Connection),
		})
	}
	return out, nil
}

// number reads a JSON number or a numeric string.
func number(raw json.RawMessage) (float64, bool) {
	text := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unquoted)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Normalize clamps the score to 0-100, tidies text and lowercases and dedups theme names.
func Normalize(r models.AnalysisResult) models.AnalysisResult {
	r.IllustrationScore = clamp(r.IllustrationScore)
	r.Summary = cleanText(r.Summary)
	r.Explanation = cleanText(r.Explanation)
	r.Themes = NormalizeThemes(r.Themes)
	return r
}

func NormalizeThemes(themes []string) []string {
	seen := make(map[string]bool, len(themes))
	out := make([]string, 0, len(themes))
	for _, t := range themes {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func clampFloat(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func clamp(score int) int {
	switch {
	case score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// cleanText removes control characters and normalizes whitespace
func cleanText(s string) string {
	s = controlChars.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}
