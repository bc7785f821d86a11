package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/skyexchange-bot/internal/health"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProbesEndpoints(t *testing.T) {
	var apiDown atomic.Bool
	checker := health.NewChecker(quietLogger())
	checker.AddCheck("api", health.CheckFunc(func(context.Context) error {
		if apiDown.Load() {
			return errors.New("unreachable")
		}
		return nil
	}))

	probes := NewProbes(checker, quietLogger())
	mux := http.NewServeMux()
	probes.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	get := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/healthz"))
	assert.Equal(t, http.StatusOK, get("/readyz"))

	apiDown.Store(true)
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
	assert.Equal(t, http.StatusOK, get("/healthz"))

	apiDown.Store(false)
	probes.Drain()
	assert.Equal(t, http.StatusServiceUnavailable, get("/readyz"))
}

func TestShutdownRunsAllHooks(t *testing.T) {
	s := NewShutdown(quietLogger())
	var ran atomic.Int32
	s.Register("redis", func(context.Context) error { ran.Add(1); return nil })
	s.Register("asynq", func(context.Context) error { ran.Add(1); return errors.New("closed twice") })
	s.Register("nil", nil)

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asynq: closed twice")
	assert.Equal(t, int32(2), ran.Load())
}

func TestShutdownRunsInReverseOrder(t *testing.T) {
	s := NewShutdown(quietLogger())
	var order []string
	for _, name := range []string{"redis", "api", "bot"} {
		name := name
		s.Register(name, func(context.Context) error { order = append(order, name); return nil })
	}

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"bot", "api", "redis"}, order)
}
