// Package ingest fetches the live car-parking and bike-station feeds,
// appends them to the history and refreshes the published snapshot and
// coordinate metadata.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

const userAgent = "parking-data-aggregation/1.0"

var (
	errServerError = errors.New("server error")
	errRateLimited = errors.New("rate limited")
)

// Fetcher pulls one upstream feed with retries (exponential backoff), a
// circuit breaker and an ordered fallback URL list.
type Fetcher struct {
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

// NewFetcher builds a fetcher named after its feed; the name scopes the
// circuit breaker.
func NewFetcher(client *http.Client, name string, log zerolog.Logger) *Fetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    1 * time.Minute,
		Timeout:     5 * time.Minute,
	})
	return &Fetcher{client: client, circuit: cb, log: log.With().Str("feed", name).Logger()}
}

// FetchFirstWorking tries each URL in order and returns the payload of the
// first one that answers, together with the URL that worked. Every URL gets
// its own retry budget; moving on to the next URL is the fallback path.
func (f *Fetcher) FetchFirstWorking(ctx context.Context, urls []string) (string, []json.RawMessage, error) {
	var lastErr error
	for _, url := range urls {
		payload, err := f.fetchOne(ctx, url)
		if err != nil {
			f.log.Warn().Str("url", url).Err(err).Msg("endpoint failed, trying next")
			lastErr = err
			continue
		}
		return url, payload, nil
	}
	return "", nil, fmt.Errorf("no endpoint answered: %w", lastErr)
}

func (f *Fetcher) fetchOne(ctx context.Context, url string) ([]json.RawMessage, error) {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	body, err := backoff.RetryWithData(func() ([]byte, error) {
		result, err := f.circuit.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, backoff.Permanent(err)
			}
			req.Header.Set("User-Agent", userAgent)

			resp, err := f.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusTooManyRequests:
				return nil, errRateLimited
			case resp.StatusCode >= 500:
				return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				return nil, backoff.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
			}
			return io.ReadAll(resp.Body)
		})
		if err != nil {
			// An open circuit will not close within this retry budget.
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return result.([]byte), nil
	}, bo)
	if err != nil {
		return nil, err
	}

	var entities []json.RawMessage
	if err := json.Unmarshal(body, &entities); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return entities, nil
}
