package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

const (
	maxBodyBytes = 5 * 1024 * 1024
	maxRedirects = 5
)

// fetcher issues paced GET requests against the source. Requests are spaced
// by a fixed delay regardless of which page they target.
type fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

func newFetcher(delay, timeout time.Duration, userAgent string) *fetcher {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}

	return &fetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}

				return nil
			},
		},
		limiter:   rate.NewLimiter(limit, 1),
		userAgent: userAgent,
	}
}

func (f *fetcher) fetch(ctx context.Context, kind, rawURL string) ([]byte, error) {
	body, err := f.get(ctx, rawURL)

	status := observability.StatusSuccess
	if err != nil {
		status = observability.StatusError
	}

	observability.SourceRequests.WithLabelValues(kind, status).Inc()

	return body, err
}

func (f *fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/rss+xml,application/atom+xml")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}
