// Package rpc exposes the classification engine over JSON-RPC 2.0 on HTTP,
// with token auth, per-client rate limiting, and Prometheus metrics.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"asset-classify/go-engine/internal/domains/contracts/ports"
	"asset-classify/go-engine/internal/platform/metrics"
)

const DefaultRPCAddr = "127.0.0.1:8545"

// Options carries the transport knobs resolved by the bootstrap layer.
type Options struct {
	Addr      string
	Token     string
	RateLimit rpcRateLimitConfig
	Metrics   *metrics.Registry
}

func DefaultOptions() Options {
	return Options{
		Addr:      DefaultRPCAddr,
		RateLimit: rpcRateLimitConfig{Enabled: true, RPS: 20, Burst: 40},
	}
}

// WithRateLimit overrides the limiter settings; rps <= 0 disables limiting.
func (o Options) WithRateLimit(rps float64, burst int) Options {
	o.RateLimit = rpcRateLimitConfig{Enabled: rps > 0, RPS: rps, Burst: burst}
	return o
}

type Server struct {
	httpServer *http.Server
	service    ports.EngineService
	rpcToken   string
	rpcLimiter *rpcRateLimiter
	metrics    *metrics.Registry
}

func NewServerWithService(opts Options, svc ports.EngineService) *Server {
	addr := opts.Addr
	if addr == "" {
		addr = DefaultRPCAddr
	}

	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		service:    svc,
		rpcToken:   strings.TrimSpace(opts.Token),
		rpcLimiter: newRPCRateLimiter(opts.RateLimit),
		metrics:    opts.Metrics,
	}
	if s.rpcToken == "" {
		slog.Default().Warn("CLASSIFY_RPC_TOKEN is not set; RPC auth disabled")
	}
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/rpc", s.handleRPC)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	default:
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
			return
		}
		errCh <- err
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// HandleRPC and HandleHealth expose the handlers to tests.
func (s *Server) HandleRPC(w http.ResponseWriter, r *http.Request) {
	s.handleRPC(w, r)
}

func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.handleHealth(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) authorizeRPC(w http.ResponseWriter, r *http.Request) bool {
	if s.rpcToken == "" {
		return true
	}
	if s.extractRPCToken(r) != s.rpcToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

func (s *Server) extractRPCToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("X-Classify-RPC-Token"))
	if token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return ""
}
