package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"seedkeeper/internal/api"
	"seedkeeper/internal/auth"
	"seedkeeper/internal/metrics"
)

// OpsServer serves health and metrics. It is meant to listen on loopback.
type OpsServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewOpsServer(authService *auth.AuthService, m *metrics.Metrics, addr string) *OpsServer {
	opsHandler := api.NewOpsHandler(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", opsHandler.HealthHandler)
	mux.Handle("GET /metrics", m.Handler())

	if addr == "" {
		addr = "localhost:8081"
	}

	return &OpsServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *OpsServer) Start() error {
	slog.Info("ops server started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}
