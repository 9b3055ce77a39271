// Package provider implements remote price data clients.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "stockalert/internal/errors"
	"stockalert/internal/models"
)

// Provider is the capability interface for one remote price source.
// Implementations must classify failures via errs.ProviderError so the
// retry policy can distinguish transient from permanent errors.
type Provider interface {
	Name() string
	SearchSymbols(ctx context.Context, query string) ([]models.TickerCandidate, error)
	FetchIntraday(ctx context.Context, symbol string) ([]models.IntradayPrice, error)
	FetchDaily(ctx context.Context, symbol string, outputSize int) ([]models.DailyPrice, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

// get performs a GET request and classifies failures: network errors,
// 429 and 5xx responses are transient; every other non-2xx is permanent.
func get(ctx context.Context, client *http.Client, provider, operation, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errs.NewPermanent(provider, operation, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errs.NewTransient(provider, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, errs.NewTransient(provider, operation, fmt.Errorf("status %d: %w", resp.StatusCode, errs.ErrRateLimited))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errs.NewPermanent(provider, operation, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewTransient(provider, operation, err)
	}
	return body, nil
}
