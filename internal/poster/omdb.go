package poster

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/iishyfishyy/yehdekho/internal/logging"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// DefaultOMDbURL is the public OMDb endpoint
const DefaultOMDbURL = "https://www.omdbapi.com/"

// OMDbConfig configures an OMDbFetcher
type OMDbConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// RatePerSecond limits outgoing requests; 0 means unlimited
	RatePerSecond float64

	// FailureThreshold consecutive upstream failures open the breaker
	FailureThreshold uint32

	// CooldownPeriod is how long the breaker stays open
	CooldownPeriod time.Duration
}

// OMDbFetcher implements Fetcher using the OMDb title lookup API
type OMDbFetcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
}

// NewOMDbFetcher creates a new OMDb fetcher
func NewOMDbFetcher(cfg OMDbConfig) (*OMDbFetcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OMDb API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOMDbURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.CooldownPeriod == 0 {
		cfg.CooldownPeriod = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}

	log := logging.Component("poster")
	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "omdb",
		Timeout: cfg.CooldownPeriod,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// a missing poster is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("poster breaker state changed")
		},
	})

	return &OMDbFetcher{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: limiter,
		breaker: breaker,
	}, nil
}

// omdbResponse is the subset of the OMDb title response we use
type omdbResponse struct {
	Response string `json:"Response"`
	Poster   string `json:"Poster"`
	Error    string `json:"Error"`
}

// Fetch returns the poster URL for an exact title
func (o *OMDbFetcher) Fetch(ctx context.Context, title string) (string, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	poster, err := o.breaker.Execute(func() (string, error) {
		return o.lookup(ctx, title)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return poster, err
}

func (o *OMDbFetcher) lookup(ctx context.Context, title string) (string, error) {
	query := url.Values{}
	query.Set("t", title)
	query.Set("apikey", o.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	// a rejected key fails every lookup, so it counts against the breaker
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var result omdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrUnavailable, err)
	}

	if strings.EqualFold(result.Response, "False") {
		return "", fmt.Errorf("%w: %s", ErrNotFound, result.Error)
	}

	if result.Poster == "" || strings.EqualFold(result.Poster, "N/A") {
		return "", ErrNotFound
	}

	return result.Poster, nil
}
