// Package server exposes the HTTP control surface: agent lifecycle, profile
// management, the resource index and an SSE event stream.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/iamsonidarshan/mcp-inspector/pkg/agent"
	"github.com/iamsonidarshan/mcp-inspector/pkg/config"
	"github.com/iamsonidarshan/mcp-inspector/pkg/indexer"
	"github.com/iamsonidarshan/mcp-inspector/pkg/llm"
	"github.com/iamsonidarshan/mcp-inspector/pkg/mcp"
	"github.com/iamsonidarshan/mcp-inspector/pkg/profile"
)

// Server wires the orchestrator, stores and downstream client behind HTTP.
type Server struct {
	cfg       config.ServerConfig
	agentCfg  config.AgentConfig
	llmCfg    llm.Config
	orch      *agent.Orchestrator
	profiles  *profile.Store
	indexer   *indexer.Indexer
	mcpClient *mcp.Client

	httpServer *http.Server
}

// New builds a server. The orchestrator starts unconfigured; configuration
// happens through the API or from the static config at startup.
func New(cfg *config.Config, orch *agent.Orchestrator, profiles *profile.Store, idx *indexer.Indexer, mcpClient *mcp.Client) *Server {
	s := &Server{
		cfg:       cfg.Server,
		agentCfg:  cfg.Agent,
		llmCfg:    cfg.LLM,
		orch:      orch,
		profiles:  profiles,
		indexer:   idx,
		mcpClient: mcpClient,
	}
	s.registerGauges()
	return s
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware)
	r.Use(countingMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	r.Get("/metrics", metricsHandler().ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		if s.cfg.AuthToken != "" {
			r.Use(s.authMiddleware)
		}

		r.Route("/agent", func(r chi.Router) {
			r.Post("/configure", s.handleAgentConfigure)
			r.Post("/start", s.handleAgentStart)
			r.Post("/pause", s.handleAgentPause)
			r.Post("/resume", s.handleAgentResume)
			r.Post("/stop", s.handleAgentStop)
			r.Get("/state", s.handleAgentState)
			r.Get("/events", s.handleAgentEvents)
		})

		r.Route("/profiles", func(r chi.Router) {
			r.Get("/", s.handleProfileList)
			r.Post("/", s.handleProfileCreate)
			r.Get("/active", s.handleProfileActive)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleProfileGet)
				r.Put("/", s.handleProfileUpdate)
				r.Delete("/", s.handleProfileDelete)
				r.Post("/activate", s.handleProfileActivate)
			})
		})

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", s.handleResourceList)
			r.Delete("/", s.handleResourceClear)
			r.Delete("/{entryId}", s.handleResourceRemove)
		})
	})

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Control surface listening", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header || token != s.cfg.AuthToken {
			writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
		)
	})
}

func countingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		httpRequests.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(ww.Status())).Inc()
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
