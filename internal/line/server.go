package line

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"line-chat-ai/internal/logging"
)

// NewMux wires the liveness page, the webhook (nil when LINE is not
// configured) and the metrics endpoint.
func NewMux(webhook http.Handler, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.Handle("/webhook", webhook)
	}
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/", handleRoot)
	return mux
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(LivenessText))
}

type Server struct {
	server *http.Server
	log    *slog.Logger
}

func NewServer(port int, handler http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: handler,
			// completions may take up to the gateway timeout
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		log: log,
	}
}

// Start blocks until the server stops; a graceful Stop is not an error.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
