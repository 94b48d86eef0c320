package errs

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap them with fmt.Errorf("...: %w", ...) and test with errors.Is.
var (
	ErrFetchTimeout       = errors.New("fetch timeout")
	ErrFetchHTTPStatus    = errors.New("fetch http status")
	ErrFetchNetwork       = errors.New("fetch network error")
	ErrFeedParse          = errors.New("feed parse error")
	ErrModelCall          = errors.New("model call failed")
	ErrModelResponseParse = errors.New("model response parse error")
	ErrModelUnavailable   = errors.New("model not configured")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("already in progress")
)

// FetchError describes why a single feed could not be turned into articles.
// Kind is one of the fetch sentinels or ErrFeedParse.
type FetchError struct {
	URL        string
	StatusCode int
	Kind       error
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrFetchTimeout:
		return fmt.Sprintf("Timeout fetching %s", e.URL)
	case ErrFetchHTTPStatus:
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	case ErrFeedParse:
		return fmt.Sprintf("Error parsing feed: %v", e.Err)
	default:
		return fmt.Sprintf("Error fetching %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Is(target error) bool { return target == e.Kind }

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound builds an ErrNotFound for the named entity.
func NotFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, ErrNotFound)
}

// Validation builds an ErrValidation with a readable reason.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrValidation)
}
