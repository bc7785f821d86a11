package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Proton-105/skyexchange-bot/internal/health"
)

const probeTimeout = 3 * time.Second

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// Probes is live once the process started and ready while every dependency check passes
// and shutdown has not begun.
type Probes struct {
	checker  *health.Checker
	draining atomic.Bool
	log      *slog.Logger
}

// NewProbes creates a new Probes instance.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Drain marks the process as shutting down; readiness fails from then on.
func (p *Probes) Drain() {
	p.draining.Store(true)
}

func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return errors.New("shutting down")
	}
	if p.checker == nil {
		return nil
	}
	results := p.checker.Check(ctx)
	if health.Healthy(results) {
		return nil
	}
	failed := make([]string, 0, len(results))
	for name, status := range results {
		if status != "OK" {
			failed = append(failed, name+": "+status)
		}
	}
	return errors.New(strings.Join(failed, "; "))
}

// Register mounts /healthz and /readyz.
func (p *Probes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", p.handle(p.Liveness))
	mux.HandleFunc("/readyz", p.handle(p.Readiness))
}

func (p *Probes) handle(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		status, code := "ok", http.StatusOK
		if err := probe(ctx); err != nil {
			status, code = err.Error(), http.StatusServiceUnavailable
			p.log.Warn("probe failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
	}
}
