package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"morningbrief/internal/config"
	appLog "morningbrief/internal/log"
	"morningbrief/internal/schedule"
)

// Server exposes a small HTTP API next to the briefing pipeline: a health
// probe, today's computed schedule, and the last rendered brief.
type Server struct {
	cfg    *config.Config
	engine *schedule.Engine
	mux    *http.ServeMux

	// In-memory cache for /api/schedule responses to avoid redundant
	// fetch/parse/expand work on every HTTP request.
	scheduleMu    sync.RWMutex
	scheduleCache *scheduleCache
}

// NewServer constructs a new Server around the given engine.
func NewServer(cfg *config.Config, engine *schedule.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password is treated as disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// /health stays unauthenticated for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="MorningBrief", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer starts an HTTP server bound to cfg.Listen. Shutdown wiring is
// the caller's concern; this helper focuses on the handlers.
func StartServer(_ context.Context, cfg *config.Config, engine *schedule.Engine) error {
	s := NewServer(cfg, engine)
	appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
	return http.ListenAndServe(cfg.Listen, s.Handler())
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/schedule", s.handleSchedule)
	s.mux.HandleFunc("/brief", s.handleBrief)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleBrief serves the last rendered brief HTML from disk.
// http.ServeFile maps missing files and permission problems to the right
// status codes on its own.
func (s *Server) handleBrief(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.Paths.OutputHTML)
}

// blockDTO is a JSON-friendly view of a gap or suggestion. Times are naive
// local wall clock formatted as RFC3339 without offset.
type blockDTO struct {
	Kind    string `json:"kind,omitempty"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Minutes int    `json:"minutes"`
}

// scheduleResponse is the JSON response shape for /api/schedule.
type scheduleResponse struct {
	Gaps        []blockDTO `json:"gaps"`
	Suggestions []blockDTO `json:"suggestions"`
	Degraded    bool       `json:"degraded"`
	WindowStart string     `json:"window_start"`
	WindowEnd   string     `json:"window_end"`
	Timezone    string     `json:"timezone"`
}

// scheduleCache holds a cached /api/schedule response and its timestamp.
type scheduleCache struct {
	resp      scheduleResponse
	updatedAt time.Time
}

// handleSchedule returns today's free gaps and suggestions.
//
// GET /api/schedule
//
// The response is cached for a short TTL: the underlying computation re-reads
// the calendar source on every miss, and sub-minute freshness buys nothing
// for a daily planning view.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	const scheduleCacheTTL = 60 * time.Second
	now := time.Now()

	// Fast path: return cached value if it's still fresh.
	s.scheduleMu.RLock()
	sc := s.scheduleCache
	s.scheduleMu.RUnlock()
	if sc != nil && now.Sub(sc.updatedAt) < scheduleCacheTTL {
		writeJSON(w, http.StatusOK, sc.resp)
		return
	}

	req := schedule.Request{
		Source:           s.cfg.Calendar.Source,
		Timezone:         s.cfg.Timezone,
		DayStartHour:     s.cfg.StudyBlocks.DayStartHour,
		DayEndHour:       s.cfg.StudyBlocks.DayEndHour,
		MinBlockMinutes:  s.cfg.StudyBlocks.MinBlockMinutes,
		DeepBlockMinutes: s.cfg.StudyBlocks.DeepBlockMinutes,
		Naive:            naivePolicy(s.cfg.Calendar.NaivePolicy),
		Now:              now,
	}

	result := s.engine.FreeBlocks(r.Context(), req)

	resp := scheduleResponse{
		Gaps:        toBlockDTOs(result.Gaps),
		Suggestions: suggestionDTOs(result.Suggestions),
		Degraded:    result.Degraded,
		WindowStart: result.WindowStart.Format("2006-01-02T15:04:05"),
		WindowEnd:   result.WindowEnd.Format("2006-01-02T15:04:05"),
		Timezone:    s.cfg.Timezone,
	}

	// Update in-memory cache for subsequent requests.
	s.scheduleMu.Lock()
	s.scheduleCache = &scheduleCache{resp: resp, updatedAt: time.Now()}
	s.scheduleMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// naivePolicy maps the config string to the engine policy.
func naivePolicy(name string) schedule.NaivePolicy {
	if name == "utc" {
		return schedule.NaiveAssumeUTC
	}
	return schedule.NaiveAssumeLocal
}

func toBlockDTOs(gaps []schedule.FreeGap) []blockDTO {
	out := make([]blockDTO, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, blockDTO{
			Start:   g.Start.Format("2006-01-02T15:04:05"),
			End:     g.End.Format("2006-01-02T15:04:05"),
			Minutes: g.Minutes,
		})
	}
	return out
}

func suggestionDTOs(suggs []schedule.Suggestion) []blockDTO {
	out := make([]blockDTO, 0, len(suggs))
	for _, s := range suggs {
		out = append(out, blockDTO{
			Kind:    s.Kind,
			Start:   s.Start.Format("2006-01-02T15:04:05"),
			End:     s.End.Format("2006-01-02T15:04:05"),
			Minutes: s.Minutes,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}
