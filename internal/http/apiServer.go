package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"seedkeeper/internal/api"
	"seedkeeper/internal/auth"
)

// maxBodyBytes bounds request bodies; an envelope for a 4096-bit key is
// well under 1 KiB once base64 encoded.
const maxBodyBytes = 64 << 10

type APIServer struct {
	server *http.Server
	wg     sync.WaitGroup
}

func NewAPIServer(authService *auth.AuthService, addr string) *APIServer {
	apiHandlers := api.New(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /decrypt-seed", limitBody(apiHandlers.DecryptSeedHandler))
	mux.HandleFunc("GET /generate-2fa", apiHandlers.Generate2FAHandler)
	mux.HandleFunc("POST /verify-2fa", limitBody(apiHandlers.Verify2FAHandler))

	if addr == "" {
		addr = ":8080"
	}

	return &APIServer{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *APIServer) Start() error {
	slog.Info("API server started", "addr", s.server.Addr)
	s.wg.Add(1)
	defer s.wg.Done()

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	defer s.wg.Wait()
	return s.server.Shutdown(ctx)
}

func limitBody(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next(w, r)
	}
}
