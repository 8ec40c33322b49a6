package webui

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"knowledgebot/pkg/config"
	"knowledgebot/pkg/conversation"
	"knowledgebot/pkg/version"
)

const (
	statusSuccess = "success"
	statusError   = "error"

	msgInvalidRequest = "Invalid request format"
)

type webhookRequest struct {
	Question string `json:"question"`
}

type webhookResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Response string `json:"response"`
	ThreadID string `json:"thread_id"`
	Status   string `json:"status"`
}

type threadResponse struct {
	ThreadID string `json:"thread_id"`
}

type healthResponse struct {
	Status          string `json:"status"`
	Version         string `json:"version"`
	ClaudeAssistant bool   `json:"claude_assistant"`
	AnthropicAPI    bool   `json:"anthropic_api"`
}

type reloadRequest struct {
	PurgeCache bool `json:"purge_cache"`
}

type reloadResponse struct {
	Status string `json:"status"`
	Source string `json:"source"`
	State  string `json:"state"`
}

// decodeBody reads a JSON object into dst. An empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return false
	}
	return true
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// handleWebhook implements POST /webhook.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req webhookRequest
	if !decodeBody(w, r, &req) || blank(req.Question) {
		s.writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	s.logger.Info("Received question: %s", req.Question)

	answer, ok := s.answer(w, r, "/webhook", req.Question)
	if !ok {
		return
	}
	s.logger.Info("Response generated successfully")
	s.writeJSON(w, http.StatusOK, webhookResponse{Response: answer, Status: statusSuccess})
}

// handleChat implements POST /chat. The thread id is echoed back, never looked up.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if !decodeBody(w, r, &req) || blank(req.Message) || blank(req.ThreadID) {
		s.writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	s.logger.Info("Received chat message on thread %s", req.ThreadID)

	answer, ok := s.answer(w, r, "/chat", req.Message)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, chatResponse{Response: answer, ThreadID: req.ThreadID, Status: statusSuccess})
}

// answer runs the core and writes any failure. ok is false when a response was written.
func (s *Server) answer(w http.ResponseWriter, r *http.Request, route, question string) (answer string, ok bool) {
	cfg, err := s.provider.Get()
	if err != nil {
		s.writeCoreError(w, route, err)
		return "", false
	}
	answer, err = s.dispatcher.Dispatch(r.Context(), question, cfg)
	if err != nil {
		s.writeCoreError(w, route, err)
		return "", false
	}
	return answer, true
}

// handleThreads implements POST /threads.
func (s *Server) handleThreads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusCreated, threadResponse{ThreadID: conversation.NewThreadID().String()})
}

// handleHealth implements GET /health. It never triggers a build.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:          "healthy",
		Version:         version.Version,
		ClaudeAssistant: s.provider.Status().Ready(),
		AnthropicAPI:    s.dispatcher.HasCredential(),
	})
}

// handleReload implements POST /admin/reload.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.authorizeAdmin(w, r) {
		return
	}

	var req reloadRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		s.writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	s.logger.Info("Reloading assistant config (purge_cache=%t)", req.PurgeCache)
	if _, err := s.provider.Rebuild(req.PurgeCache); err != nil {
		s.writeCoreError(w, "/admin/reload", err)
		return
	}
	st := s.provider.Status()
	s.writeJSON(w, http.StatusOK, reloadResponse{Status: statusSuccess, Source: string(st.Source), State: string(st.State)})
}

// authorizeAdmin checks AdminTokenHeader against the configured secret. With no secret
// configured every request is refused. ok is false when a response was written.
func (s *Server) authorizeAdmin(w http.ResponseWriter, r *http.Request) (ok bool) {
	want, err := config.GetSecret(s.adminVar)
	if err != nil {
		s.logger.Warn("Refused %s: %s is not set", r.URL.Path, s.adminVar)
		s.writeError(w, http.StatusForbidden, "Admin endpoints are disabled")
		return false
	}
	got := r.Header.Get(AdminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		s.logger.Warn("Refused %s: bad admin token", r.URL.Path)
		s.writeError(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	return true
}

// handleIndex redirects / to the dashboard and 404s everything else.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/status", http.StatusFound)
}
