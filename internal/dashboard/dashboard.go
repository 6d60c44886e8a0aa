// Package dashboard serves the read-only statistics surface: an HTML
// overview page and a JSON endpoint, both rendered from counter snapshots.
package dashboard

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixieveil/pixieveil/internal/counters"
)

// StatsProvider is the read-only handle the dashboard receives. The
// dashboard never mutates counters; it only renders snapshots.
type StatsProvider interface {
	GetCounters() counters.Snapshot
}

// Server exposes the dashboard over HTTP.
type Server struct {
	stats  StatsProvider
	logger *slog.Logger
	http   *http.Server
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head>
<title>PixieVeil</title>
<meta http-equiv="refresh" content="10">
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
td, th { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: left; }
th { background: #eee; }
</style>
</head>
<body>
<h1>PixieVeil</h1>
<table>
<tr><th colspan="2">Reception</th></tr>
<tr><td>Associations</td><td>{{.Reception.Associations}}</td></tr>
<tr><td>Images</td><td>{{.Reception.Images}}</td></tr>
<tr><td>Bytes</td><td>{{.Reception.Bytes}}</td></tr>
<tr><th colspan="2">Processing</th></tr>
<tr><td>Succeeded</td><td>{{.Processing.Succeeded}}</td></tr>
<tr><td>Dropped</td><td>{{.Processing.Dropped}}</td></tr>
<tr><td>Validation errors</td><td>{{.Processing.Errors.Validation}}</td></tr>
<tr><td>Anonymization errors</td><td>{{.Processing.Errors.Anonymization}}</td></tr>
<tr><td>I/O errors</td><td>{{.Processing.Errors.IO}}</td></tr>
<tr><th colspan="2">Archive</th></tr>
<tr><td>Studies</td><td>{{.Archive.Studies}}</td></tr>
<tr><td>Images</td><td>{{.Archive.Images}}</td></tr>
<tr><td>Errors</td><td>{{.Archive.Errors}}</td></tr>
<tr><th colspan="2">Remote storage</th></tr>
<tr><td>Studies</td><td>{{.RemoteStorage.Studies}}</td></tr>
<tr><td>Images</td><td>{{.RemoteStorage.Images}}</td></tr>
<tr><td>Bytes</td><td>{{.RemoteStorage.Bytes}}</td></tr>
<tr><td>Errors</td><td>{{.RemoteStorage.Errors}}</td></tr>
<tr><th colspan="2">Totals</th></tr>
<tr><td>Completed studies</td><td>{{.CompletedCount}}</td></tr>
<tr><td>Errors</td><td>{{.Errors.Total}}</td></tr>
</table>
</body>
</html>
`))

// New builds a dashboard server bound to addr.
func New(addr string, stats StatsProvider, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{stats: stats, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/stats", s.handleStats)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// ListenAndServe serves until the context is cancelled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	s.logger.Info("dashboard listening", "address", s.http.Addr)

	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, s.stats.GetCounters()); err != nil {
		s.logger.Warn("failed to render dashboard", "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.stats.GetCounters()); err != nil {
		s.logger.Warn("failed to encode stats", "error", err)
	}
}
