// ABOUTME: Local read-only status server with an embedded week page
// ABOUTME: Serves health, metrics, the last snapshot as JSON, and sync state
package web

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/harperreed/weekcal/agenda"
	"github.com/harperreed/weekcal/colors"
	"github.com/harperreed/weekcal/config"
	"github.com/harperreed/weekcal/db"
	"github.com/harperreed/weekcal/metrics"
	"github.com/harperreed/weekcal/week"
)

//go:embed templates/*
var templatesFS embed.FS

// Snapshot is the read side of the aggregator.
type Snapshot interface {
	LastEvents() []agenda.CalendarEvent
	LastCalendars() []agenda.CalendarListEntry
}

type Server struct {
	snapshot  Snapshot
	db        *sql.DB
	settings  config.Provider
	templates *template.Template
	now       func() time.Time
	router    chi.Router
}

// NewServer builds the router. database may be nil, in which case /status is empty.
func NewServer(snapshot Snapshot, database *sql.DB, settings config.Provider) (*Server, error) {
	funcMap := template.FuncMap{
		"textColor": colors.ContrastTextColor,
		"timeOf": func(t agenda.EventTime) string {
			if week.IsAllDay(t.DateTime, t.Date) {
				return "all day"
			}
			return week.FormatTime(t.DateTime, time.Local)
		},
	}

	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		snapshot:  snapshot,
		db:        database,
		settings:  settings,
		templates: tmpl,
		now:       time.Now,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())
	r.Get("/events", s.handleEvents)
	r.Get("/calendars", s.handleCalendars)
	r.Get("/status", s.handleStatus)
	r.Get("/", s.handleWeek)
	return r
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting status server at http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot.LastEvents())
}

func (s *Server) handleCalendars(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.snapshot.LastCalendars())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, []db.SyncState{})
		return
	}
	states, err := db.GetAllSyncStates(s.db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if states == nil {
		states = []db.SyncState{}
	}
	writeJSON(w, states)
}

func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	settings := s.settings.Settings()
	days := agenda.LayoutWeek(s.snapshot.LastEvents(), s.now(), settings)

	data := map[string]interface{}{
		"Title": "This week",
		"Days":  days,
	}
	if err := s.templates.ExecuteTemplate(w, "week.html", data); err != nil {
		log.Printf("Template error rendering week.html: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}
