// Package cima provides the fetch collaborator for the CIMA REST API.
//
// The build orchestrators depend only on the Client capability contract;
// the HTTP implementation owns pagination, per-call timeouts, and bounded
// retry with exponential backoff. Any unrecovered failure surfaces as a
// single *FetchError for that one call.
package cima

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pithecene-io/vademecum/iox"
	"github.com/pithecene-io/vademecum/types"
)

// DefaultBaseURL is the production CIMA REST endpoint.
const DefaultBaseURL = "https://cima.aemps.es/cima/rest"

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 60 * time.Second

// DefaultRetries is the default number of retry attempts per call.
const DefaultRetries = 5

// Payload is a raw upstream JSON object. The feed carries several legacy
// key-name variants per logical field, so payloads stay schemaless and the
// extraction helpers in this package coalesce across alias keys.
type Payload map[string]any

// Client is the fetch capability contract required by the orchestrators.
type Client interface {
	// EachProduct iterates the complete product catalog page by page,
	// calling fn for each product summary. The sequence is finite and
	// not restartable mid-iteration. Returning an error from fn stops
	// the iteration and is returned unchanged.
	EachProduct(ctx context.Context, fn func(summary Payload) error) error

	// ProductDetail fetches one product's detail payload by its
	// registration id. Fails with *FetchError on network/HTTP failure.
	ProductDetail(ctx context.Context, registration string) (Payload, error)

	// ChangesSince fetches the ordered change list since the given feed
	// date (DD/MM/YYYY). Fails with *FetchError.
	ChangesSince(ctx context.Context, feedDate string) ([]types.ChangeEvent, error)
}

// FetchError is the single failure signal of the fetch contract.
// It wraps the underlying cause for errors.Is/As inspection.
type FetchError struct {
	// Op is the failed operation ("catalog", "detail", "changes").
	Op string
	// Registration is the registration id involved, if any.
	Registration string
	// Err is the underlying error.
	Err error
}

func (e *FetchError) Error() string {
	if e.Registration != "" {
		return fmt.Sprintf("cima %s nregistro=%s: %v", e.Op, e.Registration, e.Err)
	}
	return fmt.Sprintf("cima %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As chain traversal.
func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is returned for non-2xx HTTP responses. Wrapping the status
// code lets the retry loop distinguish retriable (429, 5xx) from
// non-retriable (other 4xx) failures.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Config configures the HTTP client.
type Config struct {
	// BaseURL is the API root (default DefaultBaseURL).
	BaseURL string
	// Timeout is the per-request timeout (default 60s).
	Timeout time.Duration
	// Retries is the number of retry attempts per call (default 5).
	Retries int
}

// HTTPClient is the production Client over the CIMA REST API.
type HTTPClient struct {
	config Config
	client *http.Client
}

// Verify HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTP client from the given config.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &HTTPClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// EachProduct implements Client. Pages are requested until the API returns
// an empty list.
func (c *HTTPClient) EachProduct(ctx context.Context, fn func(summary Payload) error) error {
	for page := 1; ; page++ {
		payload, err := c.getJSON(ctx, "/medicamentos", url.Values{"pagina": {fmt.Sprint(page)}})
		if err != nil {
			return &FetchError{Op: "catalog", Err: err}
		}

		items := extractList(payload)
		if len(items) == 0 {
			return nil
		}
		for _, item := range items {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if err := fn(Payload(obj)); err != nil {
				return err
			}
		}
	}
}

// ProductDetail implements Client.
func (c *HTTPClient) ProductDetail(ctx context.Context, registration string) (Payload, error) {
	payload, err := c.getJSON(ctx, "/medicamento", url.Values{"nregistro": {registration}})
	if err != nil {
		return nil, &FetchError{Op: "detail", Registration: registration, Err: err}
	}
	if obj, ok := payload.(map[string]any); ok {
		return Payload(obj), nil
	}
	return Payload{}, nil
}

// ChangesSince implements Client.
func (c *HTTPClient) ChangesSince(ctx context.Context, feedDate string) ([]types.ChangeEvent, error) {
	payload, err := c.getJSON(ctx, "/registroCambios", url.Values{"fecha": {feedDate}})
	if err != nil {
		return nil, &FetchError{Op: "changes", Err: err}
	}
	return parseChanges(extractList(payload)), nil
}

// getJSON performs a GET with bounded retry and exponential backoff.
// Retries on network errors, 429, and 5xx; other 4xx fail immediately.
func (c *HTTPClient) getJSON(ctx context.Context, path string, params url.Values) (any, error) {
	var lastErr error
	// attempts = 1 initial + retries
	attempts := 1 + c.config.Retries

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context canceled: %w", err)
		}

		// Exponential backoff before retries (not before first attempt)
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context canceled during backoff: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		var payload any
		payload, lastErr = c.doRequest(ctx, path, params)
		if lastErr == nil {
			return payload, nil
		}

		var statusErr *StatusError
		if errors.As(lastErr, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests {
			return nil, fmt.Errorf("non-retriable error: %w", lastErr)
		}
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}

// doRequest performs a single GET and decodes the JSON body on 2xx.
func (c *HTTPClient) doRequest(ctx context.Context, path string, params url.Values) (any, error) {
	u := c.config.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "vademecum-builder/"+types.Version)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer iox.DiscardClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return payload, nil
}
