package server

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tracekit/traceline/internal/config"
	"github.com/tracekit/traceline/internal/controller"
	"github.com/tracekit/traceline/internal/engine"
	"github.com/tracekit/traceline/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// UserSession represents a logged-in browser session.
type UserSession struct {
	Token      string
	ExpireTime time.Time
}

// ViewerServer exposes the sampling engine over HTTP for the web frontend.
// The index and sampler are read-only, so handlers need no coordination
// beyond the session map.
type ViewerServer struct {
	ix      *engine.TraceIndex
	sampler *engine.Sampler
	views   *controller.Store

	webDir       string
	defaults     config.ViewerConfig
	passwordHash string
	sessionTTL   time.Duration

	sessions   map[string]UserSession
	sessionsMu sync.RWMutex
	srv        *http.Server
}

func NewViewerServer(ix *engine.TraceIndex, sampler *engine.Sampler, views *controller.Store, cfg config.Config) *ViewerServer {
	ttl, err := time.ParseDuration(cfg.Auth.SessionTTL)
	if err != nil || ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ViewerServer{
		ix:           ix,
		sampler:      sampler,
		views:        views,
		webDir:       cfg.Server.WebDir,
		defaults:     cfg.Viewer,
		passwordHash: cfg.Auth.PasswordHash,
		sessionTTL:   ttl,
		sessions:     make(map[string]UserSession),
	}
}

// Handler builds the API router.
func (s *ViewerServer) Handler() http.Handler {
	r := chi.NewRouter()

	r.Post("/api/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/api/trace", s.handleTrace)
		r.Get("/api/slice", s.handleSlice)
		r.Get("/api/density", s.handleDensity)
		r.Get("/api/views", s.handleListViews)
		r.Post("/api/views", s.handleAddView)
		r.Delete("/api/views/{id}", s.handleDeleteView)
	})

	if s.webDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.webDir)))
	}

	return r
}

// Start runs the HTTP server until Shutdown.
func (s *ViewerServer) Start(addr string) error {
	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *ViewerServer) Shutdown(ctx context.Context) error {
	if s.srv != nil {
		return s.srv.Shutdown(ctx)
	}
	return nil
}

// authMiddleware checks for a valid session token. Auth is active only
// when a password hash is configured; otherwise the viewer is open.
func (s *ViewerServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.passwordHash == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		var token string
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		} else {
			token = r.URL.Query().Get("token")
		}

		if token == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="traceline"`)
			http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
			return
		}

		s.sessionsMu.RLock()
		session, exists := s.sessions[token]
		s.sessionsMu.RUnlock()

		if exists {
			if time.Now().Before(session.ExpireTime) {
				next.ServeHTTP(w, r)
				return
			}
			s.sessionsMu.Lock()
			delete(s.sessions, token)
			s.sessionsMu.Unlock()
		}

		w.Header().Set("WWW-Authenticate", `Bearer realm="traceline"`)
		http.Error(w, "Unauthorized: invalid or expired token", http.StatusUnauthorized)
	})
}

func (s *ViewerServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.passwordHash == "" {
		http.Error(w, "Auth is not configured", http.StatusBadRequest)
		return
	}

	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.passwordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid password", http.StatusUnauthorized)
		return
	}

	token := uuid.NewString()
	s.sessionsMu.Lock()
	s.sessions[token] = UserSession{
		Token:      token,
		ExpireTime: time.Now().Add(s.sessionTTL),
	}
	s.sessionsMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

// handleTrace returns the trace extent, kind list, and stats. The frontend
// seeds its axis bounds and kind checkboxes from this.
func (s *ViewerServer) handleTrace(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		TimeRange *model.TimeRange  `json:"time_range"` // null for an empty trace
		Kinds     []string          `json:"kinds"`
		Stats     engine.TraceStats `json:"stats"`
	}{
		Kinds: s.ix.Kinds(),
		Stats: s.ix.Stats(),
	}
	if tr, ok := s.ix.TimeRange(); ok {
		resp.TimeRange = &tr
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

// handleSlice runs one sampling query: main view and overview strip both
// land here with their own budgets.
func (s *ViewerServer) handleSlice(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	q := r.URL.Query()

	tr := s.queryRange(q.Get("start"), q.Get("end"))
	visible := s.visibleKinds(q)
	limit := parseIntDefault(q.Get("limit"), s.defaults.MainSamples)
	lanes := parseIntDefault(q.Get("lanes"), s.defaults.LaneCount)
	labelRate := parseFloatDefault(q.Get("label_rate"), 0)

	sl, total := s.sampler.Sample(tr, visible, limit)
	engine.AssignLanes(sl, lanes)

	// Label overlay is thinned from the positioned slice so labels reuse
	// the bar positions.
	var labels *engine.Slice
	if labelRate > 0 {
		n := int(math.Ceil(float64(sl.Size()) * labelRate))
		labels = s.sampler.SubSample(sl, n)
	}

	resp := struct {
		Events []model.Event     `json:"events"`
		Total  int               `json:"total"`
		Info   engine.SampleInfo `json:"info"`
		Labels []model.Event     `json:"labels,omitempty"`
	}{
		Events: sl.Events,
		Total:  total,
		Info:   engine.NewSampleInfo(total, sl.Size()),
	}
	if labels != nil {
		resp.Labels = labels.Events
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("JSON encode error: %v", err)
		return
	}
	log.Printf("Slice query [%g, %g] -> %d of %d events in %v",
		tr.Start, tr.End, sl.Size(), total, time.Since(started))
}

// handleDensity returns exact per-bucket counts for the overview strip.
func (s *ViewerServer) handleDensity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	tr := s.queryRange(q.Get("start"), q.Get("end"))
	visible := s.visibleKinds(q)
	buckets := parseIntDefault(q.Get("buckets"), s.defaults.DensityBuckets)

	points := s.ix.Density(tr, visible, buckets)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(points); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}

func (s *ViewerServer) handleListViews(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.views.List())
}

func (s *ViewerServer) handleAddView(w http.ResponseWriter, r *http.Request) {
	var v controller.View
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if v.Name == "" {
		http.Error(w, "View name required", http.StatusBadRequest)
		return
	}

	saved, err := s.views.Add(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saved)
}

func (s *ViewerServer) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.views.Delete(id); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// queryRange resolves start/end params, defaulting to the full trace
// extent when a bound is absent or malformed.
func (s *ViewerServer) queryRange(startStr, endStr string) model.TimeRange {
	tr, _ := s.ix.TimeRange()
	if startStr != "" {
		if v, err := strconv.ParseFloat(startStr, 64); err == nil {
			tr.Start = v
		}
	}
	if endStr != "" {
		if v, err := strconv.ParseFloat(endStr, 64); err == nil {
			tr.End = v
		}
	}
	return tr
}

// visibleKinds resolves the kinds param into a visibility set. Absent
// param means all kinds; an explicit empty value means none.
func (s *ViewerServer) visibleKinds(q url.Values) map[string]bool {
	visible := make(map[string]bool)
	vals, present := q["kinds"]
	if !present {
		for _, k := range s.ix.Kinds() {
			visible[k] = true
		}
		return visible
	}
	for _, val := range vals {
		for _, k := range strings.Split(val, ",") {
			if k != "" {
				visible[k] = true
			}
		}
	}
	return visible
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
