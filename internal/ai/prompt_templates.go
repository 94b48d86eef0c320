package ai

import (
	"fmt"
	"strings"

	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/utils"
)

// Token budgets per call shape.
const (
	AnalysisMaxTokens = 500
	QueryMaxTokens    = 200
	RerankMaxTokens   = 1000
)

// PromptTemplates holds the fmt templates for the three model calls.
var PromptTemplates = struct {
	Analysis string
	Query    string
	Rerank   string
}{
	Analysis: `You are an assistant helping pastors find sermon illustrations from news articles.

Analyze this article and evaluate its potential as a sermon illustration.

Article Title: %s
Source: %s
Category: %s

Article Content:
%s

---

Evaluate this article on these criteria:
1. **Human Interest**: Does it tell a compelling human story?
2. **Moral/Ethical Dimension**: Does it raise moral questions or demonstrate values?
3. **Universal Experience**: Does it connect to experiences most people can relate to?
4. **Redemption/Hope**: Does it show transformation, hope, or overcoming adversity?
5. **Sermon Applicability**: How easily can this connect to biblical themes?

Biblical themes to consider: %s

Respond in this exact JSON format:
{
    "illustration_score": <0-100 integer>,
    "summary": "<2-3 sentence summary focused on the sermon-relevant aspects>",
    "themes": ["<theme1>", "<theme2>", "<theme3>"],
    "explanation": "<1-2 sentences explaining why this would or wouldn't work as an illustration>"
}

Scoring guide:
- 90-100: Exceptional illustration - powerful story with clear spiritual parallels
- 75-89: Good illustration - solid story that can connect to biblical themes
- 50-74: Moderate potential - useful with some creativity
- 25-49: Limited potential - mostly factual, hard to connect
- 0-24: Poor fit - technical, controversial, or inappropriate for sermons

Only return the JSON, no other text.`,

	Query: `Analyze this sermon search query and extract the key themes and concepts.

Query: %s

Identify:
1. The core biblical/spiritual themes (e.g., trust, faith, redemption, forgiveness)
2. The emotional/human elements (e.g., fear, hope, struggle, transformation)
3. Key concepts that a news story might illustrate

Respond in JSON format:
{
    "themes": ["theme1", "theme2", "theme3"],
    "concepts": ["concept1", "concept2", "concept3"],
    "sermon_angle": "Brief description of what kind of illustration would work"
}

Only return JSON, no other text.`,

	Rerank: `You are helping a pastor find sermon illustrations.

Sermon Topic: %s

Analyze these articles and rank them by how well they could illustrate the sermon topic.
For each relevant article, explain the connection to the sermon.

Articles:
%s

Return a JSON array of the top matches (most relevant first), maximum 10 results:
{
    "results": [
        {
            "article_id": <id>,
            "relevance_score": <0-100>,
            "connection": "<1-2 sentences explaining how this story illustrates the sermon topic>"
        }
    ]
}

Scoring guide:
- 90-100: Perfect illustration - directly demonstrates the biblical principle
- 70-89: Strong connection - clearly relates with minor adaptation
- 50-69: Moderate fit - usable with some creativity
- Below 50: Weak connection - skip these

Only include articles scoring 50+. Only return JSON, no other text.`,
}

// AnalysisBodyLimit caps the article text sent for scoring, in characters.
const AnalysisBodyLimit = 2000

// DigestSummaryLimit caps each candidate summary in the rerank digest, in characters.
const DigestSummaryLimit = 150

// BuildAnalysisPrompt prefers content, then summary, then title as the body.
func BuildAnalysisPrompt(a *models.Article) string {
	body := firstNonEmpty(a.Content, a.Summary, a.Title)
	body = utils.Truncate(body, AnalysisBodyLimit, "...")

	source := a.SourceName()
	if source == "" {
		source = "Unknown"
	}
	category := a.Category()
	if category == "" {
		category = "general"
	}

	return fmt.Sprintf(PromptTemplates.Analysis, a.Title, source, category, body, vocabulary())
}

func BuildQueryPrompt(query string) string {
	return fmt.Sprintf(PromptTemplates.Query, query)
}

func BuildRerankPrompt(query string, candidates []models.Article) string {
	return fmt.Sprintf(PromptTemplates.Rerank, query, Digest(candidates))
}

// Digest renders one "[id] title | summary | Themes: a, b" line per article.
func Digest(articles []models.Article) string {
	lines := make([]string, 0, len(articles))
	for i := range articles {
		a := &articles[i]
		lines = append(lines, fmt.Sprintf("[%d] %s | %s | Themes: %s",
			a.ID, a.Title,
			utils.Truncate(a.DisplaySummary(), DigestSummaryLimit, ""),
			strings.Join(a.ThemeNames(), ", ")))
	}
	return strings.Join(lines, "\n")
}

func vocabulary() string {
	names := make([]string, 0, len(models.DefaultThemes))
	for _, t := range models.DefaultThemes {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
