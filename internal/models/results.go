package models

// AnalysisResult is the scoring model's verdict on one article.
type AnalysisResult struct {
	IllustrationScore int      `json:"illustration_score"`
	Summary           string   `json:"summary"`
	Themes            []string `json:"themes"`
	Explanation       string   `json:"explanation"`
}

// QueryAnalysis is the model's reading of a free-text search query.
type QueryAnalysis struct {
	Themes      []string `json:"themes"`
	Concepts    []string `json:"concepts"`
	SermonAngle string   `json:"sermon_angle"`
}

// SearchResult is one reranked hit for a query.
type SearchResult struct {
	ArticleID         uint     `json:"article_id"`
	Title             string   `json:"title"`
	URL               string   `json:"url"`
	Source            string   `json:"source"`
	Category          string   `json:"category"`
	Summary           string   `json:"summary"`
	IllustrationScore int      `json:"illustration_score"`
	Themes            []string `json:"themes"`
	RelevanceScore    int      `json:"relevance_score"`
	Connection        string   `json:"connection"`
	Published         string   `json:"published"`
}

// MergeCounts is what merging one source's batch produced.
type MergeCounts struct {
	New     int `json:"new"`
	Updated int `json:"updated"`
}

// SourceError pairs a source name with its fetch failure description.
type SourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// CycleSummary aggregates one fetch cycle.
type CycleSummary struct {
	SourcesFetched  int           `json:"sources_fetched"`
	SourcesFailed   int           `json:"sources_failed"`
	ArticlesNew     int           `json:"articles_new"`
	ArticlesUpdated int           `json:"articles_updated"`
	Errors          []SourceError `json:"errors"`
}

// AnalyzedArticle is the compact report line for one scored article.
type AnalyzedArticle struct {
	ID     uint     `json:"id"`
	Title  string   `json:"title"`
	Score  int      `json:"score"`
	Themes []string `json:"themes"`
}

// BatchSummary aggregates one analysis batch.
type BatchSummary struct {
	Analyzed      int               `json:"analyzed"`
	Skipped       int               `json:"skipped"`
	Errors        int               `json:"errors"`
	HighPotential int               `json:"high_potential"`
	Articles      []AnalyzedArticle `json:"articles"`
	Message       string            `json:"message,omitempty"`
}

// InitSummary reports what bootstrapping added.
type InitSummary struct {
	SourcesAdded   int `json:"sources_added"`
	SourcesSkipped int `json:"sources_skipped"`
	ThemesAdded    int `json:"themes_added"`
}

// Stats is the dashboard overview.
type Stats struct {
	SourcesTotal          int64            `json:"sources_total"`
	SourcesEnabled        int64            `json:"sources_enabled"`
	ArticlesTotal         int64            `json:"articles_total"`
	ArticlesAnalyzed      int64            `json:"articles_analyzed"`
	ArticlesHighPotential int64            `json:"articles_high_potential"`
	ArticlesBookmarked    int64            `json:"articles_bookmarked"`
	ArticlesToday         int64            `json:"articles_today"`
	ByCategory            map[string]int64 `json:"by_category"`
}

// HighPotentialScore is the illustration score from which an article counts as high potential.
const HighPotentialScore = 85

// DefaultThemes is the controlled theme vocabulary seeded on init.
var DefaultThemes = []Theme{
	{Name: "grace", Description: "God's unmerited favor and forgiveness"},
	{Name: "redemption", Description: "Being saved or rescued from sin"},
	{Name: "hope", Description: "Expectation of good, trust in God's promises"},
	{Name: "love", Description: "Divine love, sacrificial love, compassion"},
	{Name: "forgiveness", Description: "Pardoning offenses, reconciliation"},
	{Name: "faith", Description: "Trust in God, belief without seeing"},
	{Name: "justice", Description: "Fairness, righteousness, moral rightness"},
	{Name: "mercy", Description: "Compassion, kindness to the suffering"},
	{Name: "healing", Description: "Physical, emotional, or spiritual restoration"},
	{Name: "perseverance", Description: "Endurance through trials, steadfastness"},
	{Name: "community", Description: "Fellowship, togetherness, the body of Christ"},
	{Name: "service", Description: "Serving others, humility, selflessness"},
	{Name: "stewardship", Description: "Responsible management of God's gifts"},
	{Name: "wisdom", Description: "Godly insight, discernment, understanding"},
	{Name: "transformation", Description: "Change, renewal, becoming new"},
	{Name: "sacrifice", Description: "Giving up something for a greater good"},
	{Name: "restoration", Description: "Returning to original state, renewal"},
	{Name: "unity", Description: "Oneness, harmony, working together"},
	{Name: "purpose", Description: "Divine calling, meaning, intentionality"},
	{Name: "provision", Description: "God's supply of needs, provision"},
}
