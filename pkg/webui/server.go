// Package webui serves the inbound HTTP API and the status dashboard.
package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"knowledgebot/pkg/assistant"
	"knowledgebot/pkg/config"
	"knowledgebot/pkg/llmerrors"
	"knowledgebot/pkg/logx"
)

//go:embed web/templates/*.html
var templateFS embed.FS

// maxBodyBytes bounds inbound JSON bodies.
const maxBodyBytes = 1 << 20

// AdminTokenHeader carries the shared secret for /admin routes.
const AdminTokenHeader = "X-Admin-Token"

// ConfigProvider hands out the assistant config.
type ConfigProvider interface {
	Get() (assistant.Config, error)
	Rebuild(purge bool) (assistant.Config, error)
	Status() assistant.Status
}

// QueryDispatcher answers questions.
type QueryDispatcher interface {
	Dispatch(ctx context.Context, question string, cfg assistant.Config) (string, error)
	HasCredential() bool
}

// HTTPRecorder observes served requests.
type HTTPRecorder interface {
	ObserveHTTP(route string, code int, duration time.Duration)
}

// Server represents the HTTP server.
type Server struct {
	provider   ConfigProvider
	dispatcher QueryDispatcher
	recorder   HTTPRecorder
	metrics    http.Handler
	logger     *logx.Logger
	templates  *template.Template
	started    time.Time
	subject    string
	adminVar   string // Secret name checked against AdminTokenHeader
}

// NewServer creates a new server.
func NewServer(provider ConfigProvider, dispatcher QueryDispatcher, subject string) *Server {
	// Templates are embedded at compile time.
	templates := template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "web/templates/*.html"))

	if subject == "" {
		subject = config.DefaultSubject
	}
	return &Server{
		provider:   provider,
		dispatcher: dispatcher,
		logger:     logx.NewLogger("webui"),
		templates:  templates,
		started:    time.Now(),
		subject:    subject,
		adminVar:   config.DefaultAdminTokenVar,
	}
}

// SetAdminTokenVar names the secret that authorizes /admin requests.
func (s *Server) SetAdminTokenVar(name string) {
	if name != "" {
		s.adminVar = name
	}
}

// SetRecorder installs a request observer.
func (s *Server) SetRecorder(r HTTPRecorder) {
	s.recorder = r
}

// SetMetricsHandler exposes h at /metrics. nil leaves the route unregistered.
func (s *Server) SetMetricsHandler(h http.Handler) {
	s.metrics = h
}

// RegisterRoutes sets up HTTP routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", s.instrument("/webhook", s.handleWebhook))
	mux.HandleFunc("/chat", s.instrument("/chat", s.handleChat))
	mux.HandleFunc("/threads", s.instrument("/threads", s.handleThreads))
	mux.HandleFunc("/health", s.instrument("/health", s.handleHealth))
	mux.HandleFunc("/status", s.instrument("/status", s.handleStatus))
	mux.HandleFunc("/admin/reload", s.instrument("/admin/reload", s.handleReload))
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	mux.HandleFunc("/", s.handleIndex)
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// StartServer listens on addr until ctx is cancelled, then shuts down gracefully.
// It returns once the listener has stopped.
func (s *Server) StartServer(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	// Parent context is cancelled; shutdown needs a fresh one.
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	//nolint:contextcheck // Parent context is cancelled
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

// statusWriter captures the response code for metrics.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		if id := r.Header.Get("X-Request-Id"); id != "" {
			r = r.WithContext(logx.WithRequestID(r.Context(), id))
		}
		next(sw, r)

		if s.recorder != nil {
			s.recorder.ObserveHTTP(route, sw.code, time.Since(start))
		}
		logx.Debug(r.Context(), "http", "%s %s -> %d (%dms)", r.Method, route, sw.code, time.Since(start).Milliseconds())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, errorResponse{Error: msg, Status: statusError})
}

// writeCoreError maps a provider or dispatcher failure to a status code.
func (s *Server) writeCoreError(w http.ResponseWriter, route string, err error) {
	code := statusFor(err)
	s.logger.Error("%s failed (%d): %v", route, code, err)
	s.writeError(w, code, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, config.ErrConfiguration):
		return http.StatusServiceUnavailable
	case llmerrors.Is(err, llmerrors.ErrorTypeRateLimit):
		return http.StatusTooManyRequests
	case llmerrors.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
