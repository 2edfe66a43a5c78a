// Package geocoder resolves postal addresses through a Nominatim-compatible
// search API (OpenStreetMap).
package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"tracker/internal/core/domain/model/kernel"
	"tracker/internal/pkg/errs"
)

const (
	// DefaultBaseURL is the public OpenStreetMap instance.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	dependency      = "geocoder"
	maxResponseSize = 1 << 20
)

// Config configures the Nominatim client. UserAgent is mandatory under the
// public instance's usage policy.
type Config struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries uint64
}

// Nominatim implements ports.Geocoder.
type Nominatim struct {
	baseURL    *url.URL
	userAgent  string
	client     *http.Client
	maxRetries uint64
	logger     *slog.Logger
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim validates config and builds the client.
func NewNominatim(config Config, logger *slog.Logger) (*Nominatim, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(config.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errs.NewValueIsInvalidErrorWithCause("geocoder base url", err)
	}
	if config.UserAgent == "" {
		return nil, errs.NewValueIsRequiredError("geocoder user agent")
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Nominatim{
		baseURL:    base,
		userAgent:  config.UserAgent,
		client:     &http.Client{Timeout: config.Timeout},
		maxRetries: config.MaxRetries,
		logger:     logger.With("component", "nominatim_geocoder"),
	}, nil
}

// Geocode returns the first search hit for address. Transport failures and
// 5xx/429 answers are retried with exponential backoff.
func (n *Nominatim) Geocode(ctx context.Context, address string) (kernel.Location, error) {
	if address == "" {
		return kernel.Location{}, errs.NewValueIsRequiredError("address")
	}

	var results []searchResult
	operation := func() error {
		var err error
		results, err = n.search(ctx, address)
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), n.maxRetries), ctx)
	notify := func(err error, wait time.Duration) {
		n.logger.WarnContext(ctx, "geocoder request failed, retrying", "error", err, "wait", wait)
	}
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if errors.Is(err, errs.ErrValueIsInvalid) {
			return kernel.Location{}, err
		}
		return kernel.Location{}, errs.NewUnavailableErrorWithCause(dependency, err)
	}

	if len(results) == 0 {
		return kernel.Location{}, errs.NewValueIsInvalidErrorWithCause("address", errors.New("no match"))
	}
	return parseResult(results[0])
}

func (n *Nominatim) search(ctx context.Context, address string) ([]searchResult, error) {
	endpoint := n.baseURL.JoinPath("search")
	query := endpoint.Query()
	query.Set("q", address)
	query.Set("format", "jsonv2")
	query.Set("limit", "1")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("nominatim answered %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, backoff.Permanent(fmt.Errorf("nominatim answered %d", resp.StatusCode))
	}

	var results []searchResult
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode nominatim response: %w", err))
	}
	return results, nil
}

func parseResult(r searchResult) (kernel.Location, error) {
	lat, latErr := strconv.ParseFloat(r.Lat, 64)
	lon, lonErr := strconv.ParseFloat(r.Lon, 64)
	if err := errors.Join(latErr, lonErr); err != nil {
		return kernel.Location{}, errs.NewUnavailableErrorWithCause(dependency, err)
	}
	return kernel.NewLocation(lon, lat)
}
