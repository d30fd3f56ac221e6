// Package poster looks up poster image URLs for recommended titles.
//
// Poster lookups never decide what gets recommended. FetchAll turns every
// failure into an empty URL so callers can render a placeholder.
package poster

import (
	"context"
	"errors"

	"github.com/iishyfishyy/yehdekho/internal/logging"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound means the upstream has no poster for the title
	ErrNotFound = errors.New("poster not found")

	// ErrUnavailable means the upstream could not be reached or is failing
	ErrUnavailable = errors.New("poster service unavailable")
)

// Fetcher resolves a movie title to a poster image URL
type Fetcher interface {
	Fetch(ctx context.Context, title string) (string, error)
}

// NopFetcher is used when posters are disabled
type NopFetcher struct{}

// Fetch always reports no poster
func (NopFetcher) Fetch(ctx context.Context, title string) (string, error) {
	return "", ErrNotFound
}

// DefaultConcurrency bounds parallel lookups in FetchAll
const DefaultConcurrency = 4

// FetchAll fetches posters for titles concurrently. The result is aligned
// with titles; a failed lookup leaves "" in its slot.
func FetchAll(ctx context.Context, f Fetcher, titles []string, concurrency int) []string {
	urls := make([]string, len(titles))
	if f == nil || len(titles) == 0 {
		return urls
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	log := logging.Component("poster")

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, title := range titles {
		i, title := i, title
		g.Go(func() error {
			url, err := f.Fetch(ctx, title)
			if err != nil {
				log.Debug().Err(err).Str("title", title).Msg("no poster")
				return nil
			}
			// each goroutine owns slot i
			urls[i] = url
			return nil
		})
	}

	// workers never return errors
	_ = g.Wait()

	return urls
}
