package api

import (
	"log/slog"
	"net/http"
	"net/http/httputil"
	"strconv"
	"time"

	"github.com/rs/xid"

	"github.com/Proton-105/skyexchange-bot/pkg/metrics"
)

// tokenRoundTripper sets the static "Token" header expected by the API.
type tokenRoundTripper struct {
	next  http.RoundTripper
	token string
}

func newTokenRoundTripper(next http.RoundTripper, token string) tokenRoundTripper {
	return tokenRoundTripper{next: next, token: token}
}

func (rt tokenRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Token", rt.token)
	return rt.next.RoundTrip(clone)
}

// loggingRoundTripper dumps requests and responses at debug level and records latency.
type loggingRoundTripper struct {
	next           http.RoundTripper
	log            *slog.Logger
	logFieldMaxLen int
}

func newLoggingRoundTripper(next http.RoundTripper, log *slog.Logger, logFieldMaxLen int) loggingRoundTripper {
	return loggingRoundTripper{next: next, log: log, logFieldMaxLen: logFieldMaxLen}
}

func (rt loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	requestID := xid.New().String()

	if rt.log.Enabled(ctx, slog.LevelDebug) {
		reqBytes, err := httputil.DumpRequestOut(req, true)
		if err != nil {
			rt.log.Error("dump api request", "request_id", requestID, "error", err)
		}
		rt.log.DebugContext(ctx, "api request",
			slog.String("request_id", requestID),
			slog.String("body", rt.cut(reqBytes)),
		)
	}

	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.ObserveAPIRequest(req.Method, "error", elapsed)
		rt.log.WarnContext(ctx, "api transport error",
			slog.String("request_id", requestID),
			slog.String("path", req.URL.Path),
			slog.Any("error", err),
		)
		return nil, err
	}
	metrics.ObserveAPIRequest(req.Method, strconv.Itoa(resp.StatusCode), elapsed)

	if rt.log.Enabled(ctx, slog.LevelDebug) {
		respBytes, err := httputil.DumpResponse(resp, true)
		if err != nil {
			rt.log.Error("dump api response", "request_id", requestID, "error", err)
		}
		rt.log.DebugContext(ctx, "api response",
			slog.String("request_id", requestID),
			slog.String("body", rt.cut(respBytes)),
			slog.Int64("duration_ms", elapsed.Milliseconds()),
		)
	}

	return resp, nil
}

func (rt loggingRoundTripper) cut(b []byte) string {
	if rt.logFieldMaxLen > 0 && len(b) > rt.logFieldMaxLen {
		b = b[:rt.logFieldMaxLen]
	}
	return string(b)
}
