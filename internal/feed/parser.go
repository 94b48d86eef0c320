package feed

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/models"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]+>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// Only these entities are decoded; anything else is kept verbatim.
	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// CleanHTML removes HTML tags, decodes a few common entities and normalizes whitespace
func CleanHTML(input string) string {
	cleaned := htmlTagRegex.ReplaceAllString(input, "")
	cleaned = entityReplacer.Replace(cleaned)
	cleaned = whitespaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// Parse turns raw RSS/Atom/JSON feed bytes into articles, in feed order.
// Entries without a link are dropped.
func Parse(data []byte) ([]models.RawArticle, error) {
	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &errs.FetchError{Kind: errs.ErrFeedParse, Err: err}
	}

	articles := make([]models.RawArticle, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		article, ok := normalizeItem(item)
		if !ok {
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func normalizeItem(item *gofeed.Item) (models.RawArticle, bool) {
	link := strings.TrimSpace(item.Link)
	if link == "" {
		return models.RawArticle{}, false
	}

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = "Untitled"
	}

	article := models.RawArticle{
		Title:   title,
		URL:     link,
		Summary: CleanHTML(item.Description),
		Content: CleanHTML(item.Content),
	}

	if item.Author != nil {
		article.Author = strings.TrimSpace(item.Author.Name)
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		article.Author = strings.TrimSpace(item.Authors[0].Name)
	}

	switch {
	case item.PublishedParsed != nil:
		published := *item.PublishedParsed
		article.PublishedAt = &published
	case item.UpdatedParsed != nil:
		updated := *item.UpdatedParsed
		article.PublishedAt = &updated
	}

	return article, true
}

func describe(a models.RawArticle) string {
	return fmt.Sprintf("%q <%s>", a.Title, a.URL)
}
