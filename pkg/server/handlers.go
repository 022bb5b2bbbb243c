package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iamsonidarshan/mcp-inspector/pkg/agent"
	"github.com/iamsonidarshan/mcp-inspector/pkg/llm"
	"github.com/iamsonidarshan/mcp-inspector/pkg/profile"
)

// configureRequest is the agent configuration payload. Omitted fields fall
// back to the static config.
type configureRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
	Host     string `json:"host"`
	MaxDepth int    `json:"maxDepth"`
}

func (s *Server) handleAgentConfigure(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	llmCfg := s.llmCfg
	if req.Provider != "" {
		llmCfg.Provider = req.Provider
	}
	if req.APIKey != "" {
		llmCfg.APIKey = req.APIKey
	}
	if req.Model != "" {
		llmCfg.Model = req.Model
	}
	if req.Host != "" {
		llmCfg.Host = req.Host
	}

	provider, err := llm.NewProvider(llmCfg)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxDepth := req.MaxDepth
	if maxDepth == 0 {
		maxDepth = s.agentCfg.MaxDepth
	}

	err = s.orch.Configure(agent.Config{
		Provider:  provider,
		ListTools: s.mcpClient.ListTools,
		CallTool:  s.callTool,
		MaxDepth:  maxDepth,
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configured": true, "provider": llmCfg.Provider, "maxDepth": maxDepth})
}

// callTool injects the active profile's headers before each downstream call.
func (s *Server) callTool(ctx context.Context, name string, args map[string]any) (any, error) {
	s.mcpClient.SetHeaders(s.profiles.ActiveHeaders())
	return s.mcpClient.CallTool(ctx, name, args)
}

func (s *Server) handleAgentStart(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Start(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "running"})
}

func (s *Server) handleAgentPause(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Pause(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "paused"})
}

func (s *Server) handleAgentResume(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Resume(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "running"})
}

func (s *Server) handleAgentStop(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Stop(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "idle"})
}

func (s *Server) handleAgentState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.GetState())
}

// handleAgentEvents streams agent events as SSE. The current state is
// replayed first.
func (s *Server) handleAgentEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, cancel := s.orch.Subscribe()
	defer cancel()

	eventSubscribers.Inc()
	defer eventSubscribers.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			agentEvents.WithLabelValues(ev.Type).Inc()
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

type profileRequest struct {
	DisplayName   string            `json:"displayName"`
	ColorTag      string            `json:"colorTag"`
	Authorization string            `json:"authorization"`
	Headers       map[string]string `json:"headers"`
}

func (s *Server) handleProfileList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles":        s.profiles.List(),
		"activeProfileId": s.profiles.ActiveID(),
	})
}

func (s *Server) handleProfileCreate(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	p, err := s.profiles.Create(req.DisplayName, req.ColorTag, req.Headers, req.Authorization)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleProfileGet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.profiles.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "profile not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfileUpdate(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.ColorTag != "" && !profile.ValidColorTag(req.ColorTag) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid color tag %q", req.ColorTag))
		return
	}

	p, err := s.profiles.Update(chi.URLParam(r, "id"), func(p *profile.UserProfile) {
		if req.DisplayName != "" {
			p.DisplayName = req.DisplayName
		}
		if req.ColorTag != "" {
			p.ColorTag = req.ColorTag
		}
		if req.Authorization != "" {
			p.Authorization = req.Authorization
		}
		if req.Headers != nil {
			p.Headers = req.Headers
		}
	})
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleProfileDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Delete(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleProfileActivate(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.SetActive(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activeProfileId": s.profiles.ActiveID()})
}

func (s *Server) handleProfileActive(w http.ResponseWriter, r *http.Request) {
	p := s.profiles.Active()
	if p == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleResourceList(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")
	writeJSON(w, http.StatusOK, map[string]any{
		"resources": s.indexer.List(userID),
	})
}

func (s *Server) handleResourceRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.indexer.Remove(chi.URLParam(r, "entryId")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
}

func (s *Server) handleResourceClear(w http.ResponseWriter, r *http.Request) {
	s.indexer.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}
