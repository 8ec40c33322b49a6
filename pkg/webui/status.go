package webui

import (
	"bytes"
	"html/template"
	"net/http"
	"strings"
	"time"

	"knowledgebot/pkg/logx"
	"knowledgebot/pkg/version"
)

// dashboardLogLines is how many recent log lines the dashboard shows.
const dashboardLogLines = 50

//nolint:gochecknoglobals // Template helpers
var templateFuncs = template.FuncMap{
	"lower": strings.ToLower,
	"ago": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return time.Since(t).Round(time.Second).String() + " ago"
	},
}

type dashboardData struct {
	AttemptedAt   time.Time
	Version       string
	Subject       string
	State         string
	Source        string
	LastError     string
	Uptime        string
	Logs          []logx.LogEntry
	Attempts      int
	ConfigReady   bool
	CredentialSet bool
}

// handleStatus renders the dashboard. It reports state and never triggers a build.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	st := s.provider.Status()
	data := dashboardData{
		Version:       version.Version,
		Subject:       s.subject,
		State:         string(st.State),
		Source:        string(st.Source),
		AttemptedAt:   st.AttemptedAt,
		Attempts:      st.Attempts,
		ConfigReady:   st.Ready(),
		CredentialSet: s.dispatcher.HasCredential(),
		Uptime:        time.Since(s.started).Round(time.Second).String(),
		Logs:          logx.GetRecentLogEntries(dashboardLogLines),
	}
	if st.LastError != nil {
		data.LastError = st.LastError.Error()
	}

	// Render into a buffer so a template failure can still produce a 500.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "status.html", data); err != nil {
		s.logger.Error("Failed to render status template: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
