package nbn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL = "https://places.nbnco.net.au/places"
	referer        = "https://www.nbnco.com.au/"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"
)

// ErrTransient marks failures worth retrying on a later run: transport errors, timeouts,
// throttling and 5xx responses.
var ErrTransient = errors.New("nbn: transient failure")

type Options struct {
	BaseURL string
	Timeout time.Duration
	Retries int
	// RetryWait is the initial backoff; it doubles up to RetryMaxWait.
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// Limiter is shared by every client built from the same Options.
	Limiter *rate.Limiter
}

// NewLimiter returns a limiter for perSecond requests, or nil when perSecond <= 0.
func NewLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return nil
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst)
}

// Client talks to the unofficial NBN places API.
type Client struct {
	http *resty.Client
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	if opts.RetryMaxWait <= 0 {
		opts.RetryMaxWait = 5 * time.Second
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseURL)
	httpClient.SetHeader("referer", referer)
	httpClient.SetHeader("user-agent", userAgent)
	httpClient.SetHeader("accept", "application/json")
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetRetryCount(opts.Retries)
	httpClient.SetRetryWaitTime(opts.RetryWait)
	httpClient.SetRetryMaxWaitTime(opts.RetryMaxWait)
	httpClient.AddRetryCondition(func(res *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return res != nil && isTransientStatus(res.StatusCode())
	})

	if opts.Limiter != nil {
		limiter := opts.Limiter
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	httpClient.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		log.Debug().
			Str("url", res.Request.URL).
			Int("status", res.StatusCode()).
			Dur("elapsed", res.Time()).
			Msg("nbn request")
		return nil
	})
	httpClient.OnError(func(req *resty.Request, err error) {
		log.Debug().Err(err).Str("url", req.URL).Msg("nbn request failed")
	})

	return &Client{http: httpClient}
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// Search returns the autocomplete candidates for an address, best first.
func (c *Client) Search(ctx context.Context, address string) ([]Suggestion, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("query", address).
		Get("/v1/autocomplete")
	if err := checkResponse(res, err); err != nil {
		return nil, fmt.Errorf("nbn: search %q: %w", address, err)
	}

	var out autocompleteResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("nbn: search %q: decode response: %w", address, err)
	}
	return out.Suggestions, nil
}

// Details fetches the technology and address record for a location id.
func (c *Client) Details(ctx context.Context, id string) (*Detail, error) {
	res, err := c.http.R().
		SetContext(ctx).
		Get("/v2/details/" + url.PathEscape(id))
	if err := checkResponse(res, err); err != nil {
		return nil, fmt.Errorf("nbn: details %s: %w", id, err)
	}

	var out Detail
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return nil, fmt.Errorf("nbn: details %s: decode response: %w", id, err)
	}
	return &out, nil
}

func checkResponse(res *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	if isTransientStatus(res.StatusCode()) {
		return fmt.Errorf("%w: status %d", ErrTransient, res.StatusCode())
	}
	if res.IsError() {
		return fmt.Errorf("unexpected status %d", res.StatusCode())
	}
	return nil
}
