// Package api is a typed client for the exchange REST service.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"

	apperrors "github.com/Proton-105/skyexchange-bot/internal/errors"
	"github.com/Proton-105/skyexchange-bot/pkg/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func init() {
	// the API expects money as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Client calls the exchange API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
}

// New builds a Client with token auth and request logging.
func New(cfg config.APIConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := newTokenRoundTripper(
		newLoggingRoundTripper(http.DefaultTransport, log, 2048),
		cfg.Key,
	)

	breaker := apperrors.NewCircuitBreaker()
	breaker.IsFailure = countsAgainstBreaker

	return &Client{
		baseURL: strings.TrimRight(cfg.Host, "/"),
		http:    &http.Client{Transport: transport, Timeout: timeout},
		breaker: breaker,
		log:     log,
	}
}

// NewWithHTTPClient is used by tests to point the client at an httptest server.
func NewWithHTTPClient(baseURL, key string, hc *http.Client, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	if hc == nil {
		hc = &http.Client{}
	}
	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = newTokenRoundTripper(base, key)

	breaker := apperrors.NewCircuitBreaker()
	breaker.IsFailure = countsAgainstBreaker

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		breaker: breaker,
		log:     log,
	}
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	// reads are idempotent and may be retried
	return apperrors.WithRetry(ctx, func() error {
		return c.do(ctx, http.MethodGet, path, query, nil, out)
	})
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", method, path, err)
		}
		payload = bytes.NewReader(raw)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, path, http.StatusForbidden, out)
}

// send executes req through the circuit breaker and decodes the response into out.
// rejectStatus is the status code whose {"detail": ...} body is a domain rejection.
func (c *Client) send(req *http.Request, path string, rejectStatus int, out any) error {
	return c.breaker.Call(func() error {
		resp, err := c.http.Do(req)
		if err != nil {
			return apperrors.NewExternalAPIError(path, err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return apperrors.NewExternalAPIError(path, err)
		}

		if resp.StatusCode == rejectStatus {
			rej := &RejectionError{Status: resp.StatusCode, Detail: parseDetail(raw)}
			return apperrors.NewRejectionError(rej.Detail, rej)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			statusErr := &StatusError{Method: req.Method, Path: path, Status: resp.StatusCode, Body: truncate(string(raw), 512)}
			c.log.Error("api call failed", "method", req.Method, "path", path, "status", resp.StatusCode)
			if resp.StatusCode >= 500 {
				return apperrors.NewExternalAPIError(path, statusErr)
			}
			return statusErr
		}

		return decodeBody(raw, out)
	})
}

func decodeBody(raw []byte, out any) error {
	if out == nil {
		return nil
	}
	if s, ok := out.(*string); ok {
		*s = string(raw)
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseDetail(raw []byte) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return body.Detail
}

func countsAgainstBreaker(err error) bool {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return !errors.Is(err, context.Canceled)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func itoa(v int64) string {
	return fmt.Sprintf("%d", v)
}
