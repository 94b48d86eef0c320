package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/bilgisen/illustrate/internal/app"
	"github.com/bilgisen/illustrate/internal/config"
	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/models"
	"github.com/bilgisen/illustrate/internal/search"
	"github.com/bilgisen/illustrate/internal/storage"
)

const usage = `Usage: illustrate <command> [flags] [args]

Commands:
  init                 seed themes and import sources from SOURCES_FILE
  sources              list feed sources
  fetch                fetch every enabled source
  fetch-one NAME       fetch the first source whose name contains NAME
  articles             list recent articles
  top                  list the best-scored articles
  stats                show database statistics
  analyze              score unanalyzed articles
  search QUERY         find illustrations for a sermon topic

Run "illustrate <command> -h" for command flags.
`

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"init":      runInit,
	"sources":   runSources,
	"fetch":     runFetch,
	"fetch-one": runFetchOne,
	"articles":  runArticles,
	"top":       runTop,
	"stats":     runStats,
	"analyze":   runAnalyze,
	"search":    runSearch,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Print(usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	if err := logger.Init(logger.Config{
		Level:  cfg.LogLevel,
		Output: "stderr",
		Pretty: true,
	}); err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	err = cmd(ctx, a, os.Args[2:])
	if cerr := a.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "error closing: %v\n", cerr)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runInit(ctx context.Context, a *app.App, _ []string) error {
	entries, err := config.LoadSources(a.Config.SourcesFile)
	if err != nil {
		return err
	}
	summary, err := a.Services.Store.Init(ctx, config.ToModels(entries))
	if err != nil {
		return err
	}
	fmt.Printf("Themes added:    %d\n", summary.ThemesAdded)
	fmt.Printf("Sources added:   %d\n", summary.SourcesAdded)
	fmt.Printf("Sources skipped: %d (already present)\n", summary.SourcesSkipped)
	return nil
}

func runSources(ctx context.Context, a *app.App, _ []string) error {
	sources, err := a.Services.Store.ListSources(ctx, false)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tENABLED\tLAST FETCHED\tERROR")
	for _, s := range sources {
		last := "never"
		if s.LastFetched != nil {
			last = s.LastFetched.Local().Format("2006-01-02 15:04")
		}
		fetchErr := ""
		if s.FetchError != nil {
			fetchErr = *s.FetchError
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%s\n", s.ID, s.Name, s.Category, s.Enabled, last, fetchErr)
	}
	return w.Flush()
}

func runFetch(ctx context.Context, a *app.App, _ []string) error {
	summary, err := a.Services.Refresher.RefreshAll(ctx)
	if err != nil {
		return err
	}
	printCycle(summary)
	return nil
}

func runFetchOne(ctx context.Context, a *app.App, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return errs.Validation("fetch-one needs a source name")
	}
	src, summary, err := a.Services.Refresher.FetchOne(ctx, name)
	if err != nil {
		return err
	}
	fmt.Printf("Source: %s\n", src.Name)
	printCycle(summary)
	return nil
}

func runArticles(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("articles", flag.ContinueOnError)
	category := fs.String("category", "", "only this source category")
	bookmarked := fs.Bool("bookmarked", false, "only bookmarked articles")
	minScore := fs.Int("min-score", 0, "minimum illustration score")
	limit := fs.Int("limit", 20, "maximum number of articles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	articles, err := a.Services.Store.ListArticles(ctx, storage.ArticleFilter{
		Category:       *category,
		BookmarkedOnly: *bookmarked,
		MinScore:       *minScore,
		Limit:          *limit,
	})
	if err != nil {
		return err
	}
	return printArticles(articles)
}

func runTop(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("top", flag.ContinueOnError)
	category := fs.String("category", "", "only this source category")
	minScore := fs.Int("min-score", 0, "minimum illustration score")
	limit := fs.Int("limit", 20, "maximum number of articles")
	if err := fs.Parse(args); err != nil {
		return err
	}

	articles, err := a.Services.Store.TopScored(ctx, *category, *minScore, *limit)
	if err != nil {
		return err
	}
	return printArticles(articles)
}

func runStats(ctx context.Context, a *app.App, _ []string) error {
	stats, err := a.Services.Store.Stats(ctx, time.Now())
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runAnalyze(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	limit := fs.Int("limit", a.Config.AnalyzeDefaultLimit, "maximum number of articles to score")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.Services.Analyzer == nil {
		return errs.ErrModelUnavailable
	}

	summary, err := a.Services.Analyzer.AnalyzeBatch(ctx, *limit)
	if err != nil {
		return err
	}
	if summary.Message != "" {
		fmt.Println(summary.Message)
		return nil
	}

	fmt.Printf("Analyzed: %d  Skipped: %d  Errors: %d  High potential: %d\n",
		summary.Analyzed, summary.Skipped, summary.Errors, summary.HighPotential)
	for _, art := range summary.Articles {
		fmt.Printf("  [%3d] %s (%s)\n", art.Score, art.Title, strings.Join(art.Themes, ", "))
	}
	return nil
}

func runSearch(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	category := fs.String("category", "", "only this source category")
	minScore := fs.Int("min-score", 0, "minimum illustration score")
	limit := fs.Int("limit", a.Config.SearchDefaultLimit, "maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if a.Services.Search == nil {
		return errs.ErrModelUnavailable
	}

	query := strings.Join(fs.Args(), " ")
	results, err := a.Services.Search.Search(ctx, search.Options{
		Query:    query,
		Limit:    *limit,
		Category: *category,
		MinScore: *minScore,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matching illustrations found.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. %s [relevance %d, score %d]\n", i+1, r.Title, r.RelevanceScore, r.IllustrationScore)
		fmt.Printf("   %s | %s | %s\n", r.Source, r.Category, r.Published)
		fmt.Printf("   %s\n", r.URL)
		if r.Connection != "" {
			fmt.Printf("   -> %s\n", r.Connection)
		}
		fmt.Println()
	}
	return nil
}

func printCycle(s models.CycleSummary) {
	fmt.Printf("Fetched: %d  Failed: %d  New articles: %d  Updated: %d\n",
		s.SourcesFetched, s.SourcesFailed, s.ArticlesNew, s.ArticlesUpdated)
	for _, e := range s.Errors {
		fmt.Printf("  %s: %s\n", e.Source, e.Error)
	}
}

func printArticles(articles []models.Article) error {
	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCORE\tPUBLISHED\tSOURCE\tTITLE")
	for i := range articles {
		v := articles[i].View(now)
		score := "-"
		if articles[i].IllustrationScore != nil {
			score = fmt.Sprint(v.IllustrationScore)
		}
		mark := ""
		if v.Bookmarked {
			mark = " *"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s%s\n", v.ID, score, v.Published, v.Source, v.Title, mark)
	}
	return w.Flush()
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
