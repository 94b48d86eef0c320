package feed

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/bilgisen/illustrate/internal/errs"
	"github.com/bilgisen/illustrate/internal/logger"
	"github.com/bilgisen/illustrate/internal/models"
)

// UserAgent identifies the reader to feed servers.
const UserAgent = "Illustrate/1.0 (RSS Reader; +https://github.com/bilgisen/illustrate)"

// DefaultArchiveTimeout bounds a single archive upload.
const DefaultArchiveTimeout = 10 * time.Second

// Archiver keeps a copy of raw feed bodies. Failures never affect the fetch.
type Archiver interface {
	Archive(ctx context.Context, sourceID uint, url string, body []byte, at time.Time) error
}

// Result is one source's outcome: either Articles or Err, never both.
type Result struct {
	Articles []models.RawArticle
	Err      error
}

type Fetcher struct {
	client         *resty.Client
	concurrency    int
	archiver       Archiver
	archiveTimeout time.Duration
	log            zerolog.Logger
}

type FetcherOption func(*Fetcher)

// WithArchiver stores every successfully downloaded body.
func WithArchiver(a Archiver) FetcherOption {
	return func(f *Fetcher) { f.archiver = a }
}

// WithArchiveTimeout overrides DefaultArchiveTimeout.
func WithArchiveTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.archiveTimeout = d
		}
	}
}

// NewFetcher caps in-flight requests at concurrency, each bounded by timeout.
// Failed requests are not retried.
func NewFetcher(concurrency int, timeout time.Duration, opts ...FetcherOption) *Fetcher {
	if concurrency < 1 {
		concurrency = 1
	}
	f := &Fetcher{
		client: resty.New().
			SetTimeout(timeout).
			SetRedirectPolicy(resty.FlexibleRedirectPolicy(10)).
			SetHeader("User-Agent", UserAgent).
			SetHeader("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*"),
		concurrency:    concurrency,
		archiveTimeout: DefaultArchiveTimeout,
		log:            logger.Component("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads url and classifies failures as timeout, HTTP status or network errors.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		if isTimeout(err) {
			return nil, &errs.FetchError{URL: url, Kind: errs.ErrFetchTimeout, Err: err}
		}
		return nil, &errs.FetchError{URL: url, Kind: errs.ErrFetchNetwork, Err: err}
	}

	if resp.StatusCode() >= 400 {
		return nil, &errs.FetchError{URL: url, StatusCode: resp.StatusCode(), Kind: errs.ErrFetchHTTPStatus}
	}

	return resp.Body(), nil
}

// FetchSource downloads and parses one source's feed.
func (f *Fetcher) FetchSource(ctx context.Context, source models.Source) Result {
	start := time.Now()
	body, err := f.Fetch(ctx, source.URL)
	if err != nil {
		return Result{Err: err}
	}

	f.archive(ctx, source, body)

	articles, err := Parse(body)
	if err != nil {
		return Result{Err: err}
	}

	f.log.Debug().
		Str("source", source.Name).
		Int("articles", len(articles)).
		Dur("duration", time.Since(start)).
		Msg("Fetched feed")

	return Result{Articles: articles}
}

func (f *Fetcher) archive(ctx context.Context, source models.Source, body []byte) {
	if f.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, f.archiveTimeout)
	defer cancel()
	if err := f.archiver.Archive(ctx, source.ID, source.URL, body, time.Now()); err != nil {
		f.log.Warn().
			Err(err).
			Str("source", source.Name).
			Msg("Failed to archive raw feed")
	}
}

// FetchAll fetches every source concurrently and maps source id to its outcome.
// One source failing never affects another.
func (f *Fetcher) FetchAll(ctx context.Context, sources []models.Source) map[uint]Result {
	type sourceResult struct {
		id     uint
		result Result
	}

	results := make(chan sourceResult, len(sources))
	semaphore := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for _, source := range sources {
		wg.Add(1)
		go func(src models.Source) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results <- sourceResult{id: src.ID, result: Result{
					Err: &errs.FetchError{URL: src.URL, Kind: errs.ErrFetchNetwork, Err: ctx.Err()},
				}}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results <- sourceResult{id: src.ID, result: f.FetchSource(ctx, src)}
		}(source)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[uint]Result, len(sources))
	for res := range results {
		out[res.id] = res.result
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
