package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"

	"recurcal/internal/config"
	"recurcal/internal/ics"
	appLog "recurcal/internal/log"
	"recurcal/internal/model"
	"recurcal/internal/recurrence"
)

// schedulesCacheTTL bounds how long /api/schedules responses are reused.
const schedulesCacheTTL = 30 * time.Second

// maxBodyBytes limits request bodies for the POST endpoints.
const maxBodyBytes = 1 << 20

// Server provides the HTTP API for previewing and validating recurrences.
type Server struct {
	// cfg is replaced by Refresh when the config file is reloaded.
	cfgMu      sync.RWMutex
	cfg        *config.Config
	configPath string

	mux *http.ServeMux

	// now is the clock used for cache expiry and export DTSTAMPs.
	now func() time.Time

	// In-memory cache for /api/schedules responses. Dropped by Refresh.
	schedulesMu    sync.RWMutex
	schedulesCache *schedulesCache
}

// NewServer constructs a new Server. configPath is the file Refresh reloads
// schedules from; with an empty path Refresh only drops cached responses.
func NewServer(cfg *config.Config, configPath string) *Server {
	s := &Server{
		cfg:        cfg,
		configPath: configPath,
		mux:        http.NewServeMux(),
		now:        time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.config().Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// Refresh re-reads the config file and drops cached responses, so schedules
// saved by import --save or edited by hand are served without a restart. It
// runs on the refresh cron schedule. A file that cannot be read is logged and
// the previous config kept. Listen address and basic auth are fixed at
// startup and keep their original values.
func (s *Server) Refresh() {
	if s.configPath != "" {
		cfg, err := config.Read(s.configPath)
		if err != nil {
			appLog.Error("config reload failed; keeping previous config", err, "config_path", s.configPath)
		} else {
			s.cfgMu.Lock()
			cfg.Listen = s.cfg.Listen
			cfg.BasicAuth = s.cfg.BasicAuth
			s.cfg = cfg
			s.cfgMu.Unlock()
			appLog.Info("config reloaded", "config_path", s.configPath, "schedules", len(cfg.Schedules))
		}
	}

	s.schedulesMu.Lock()
	s.schedulesCache = nil
	s.schedulesMu.Unlock()
	appLog.Debug("schedules cache dropped")
}

// config returns the config currently in effect.
func (s *Server) config() *config.Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	conf := s.config()
	if conf == nil || conf.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth.
	if conf.BasicAuth.Username == "" || conf.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	auth := *s.config().BasicAuth
	username, password := auth.Username, auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="recurcal", charset="UTF-8"`)
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

// Run serves the API on cfg.Listen until ctx is cancelled, then shuts the
// server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen := s.config().Listen
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/preview", s.handlePreview)
	s.mux.HandleFunc("POST /api/validate-field", s.handleValidateField)
	s.mux.HandleFunc("GET /api/schedules", s.handleSchedules)
	s.mux.HandleFunc("GET /api/schedules/{id}/ics", s.handleScheduleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// previewRequest is the JSON request shape for /api/preview.
type previewRequest struct {
	Recurrence recurrence.Definition `json:"recurrence"`
	MaxDates   int                   `json:"max_dates"`
}

// previewResponse is the JSON response shape for a single preview.
type previewResponse struct {
	Recurrence       recurrence.Definition        `json:"recurrence"`
	Dates            []string                     `json:"dates"`
	IsValid          bool                         `json:"is_valid"`
	Errors           map[string]string            `json:"errors"`
	Warnings         map[string]string            `json:"warnings"`
	Findings         []recurrence.ValidationError `json:"findings"`
	ValidationErrors []string                     `json:"validation_errors"`
	RRule            string                       `json:"rrule,omitempty"`
}

// scheduleDTO is a JSON-friendly view of a configured schedule.
type scheduleDTO struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Preview previewResponse `json:"preview"`
}

type schedulesResponse struct {
	Schedules []scheduleDTO `json:"schedules"`
	Errors    []string      `json:"errors,omitempty"`
}

// schedulesCache holds a cached /api/schedules response and its timestamp.
type schedulesCache struct {
	resp      schedulesResponse
	updatedAt time.Time
}

// validateFieldRequest is the JSON request shape for /api/validate-field.
// Value is decoded according to Field.
type validateFieldRequest struct {
	Field     string          `json:"field"`
	Value     json.RawMessage `json:"value"`
	StartDate string          `json:"start_date"`
}

type validateFieldResponse struct {
	Finding *recurrence.ValidationError `json:"finding"`
}

// handlePreview validates an ad-hoc recurrence and returns its dates.
//
// POST /api/preview
//
//	{"recurrence": {...}, "max_dates": 10}
//
// max_dates defaults to the configured preview length and is capped at
// config.MaxPreviewDates.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := req.Recurrence.Config()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	maxDates := s.previewLength(req.MaxDates)
	p := model.NewPreview(cfg, maxDates)

	appLog.Debug("api preview request",
		"pattern", string(cfg.Pattern),
		"interval", cfg.Interval,
		"max_dates", maxDates,
		"is_valid", p.IsValid,
		"date_count", len(p.GeneratedDates),
	)

	writeJSON(w, http.StatusOK, toPreviewResponse(p))
}

// handleValidateField checks one form field the way an editor would while
// the user types.
func (s *Server) handleValidateField(w http.ResponseWriter, r *http.Request) {
	var req validateFieldRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var fctx recurrence.FieldContext
	if req.StartDate != "" {
		start, err := recurrence.ParseDate(req.StartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_date: "+err.Error())
			return
		}
		fctx.StartDate = mo.Some(start)
	}

	value, err := fieldValue(req.Field, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "value: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, validateFieldResponse{
		Finding: recurrence.ValidateField(req.Field, value, fctx),
	})
}

// handleSchedules returns all configured schedules with their previews.
func (s *Server) handleSchedules(w http.ResponseWriter, _ *http.Request) {
	cacheNow := s.now()

	s.schedulesMu.RLock()
	sc := s.schedulesCache
	s.schedulesMu.RUnlock()
	if sc != nil && cacheNow.Sub(sc.updatedAt) < schedulesCacheTTL {
		writeJSON(w, http.StatusOK, sc.resp)
		return
	}

	conf := s.config()
	schedules, err := conf.ModelSchedules()
	resp := schedulesResponse{Schedules: make([]scheduleDTO, 0, len(schedules))}
	if err != nil {
		appLog.Error("api schedules: some schedules could not be loaded", err)
		resp.Errors = strings.Split(err.Error(), "\n")
	}

	for _, sched := range schedules {
		p := model.NewPreview(sched.Recurrence, conf.MaxPreviewDates)
		resp.Schedules = append(resp.Schedules, scheduleDTO{
			ID:      sched.ID,
			Name:    sched.Name,
			Preview: toPreviewResponse(p),
		})
	}

	s.schedulesMu.Lock()
	s.schedulesCache = &schedulesCache{
		resp:      resp,
		updatedAt: cacheNow,
	}
	s.schedulesMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handleScheduleICS exports one schedule's preview dates as an ICS calendar.
//
// GET /api/schedules/{id}/ics
func (s *Server) handleScheduleICS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	conf := s.config()
	sc, ok := conf.Schedule(id)
	if !ok {
		writeError(w, http.StatusNotFound, "schedule not found")
		return
	}

	rc, err := sc.Recurrence.Config()
	if err != nil {
		appLog.Error("api ics: schedule has malformed dates", err, "id", id)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	sched := model.Schedule{ID: sc.ID, Name: sc.Name, Recurrence: rc}
	p := model.NewPreview(rc, conf.MaxPreviewDates)
	if !p.IsValid {
		writeJSON(w, http.StatusUnprocessableEntity, toPreviewResponse(p))
		return
	}

	body := ics.Export(sched, p.GeneratedDates, s.now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sc.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) previewLength(requested int) int {
	n := requested
	if n <= 0 {
		n = s.config().MaxPreviewDates
	}
	if n <= 0 {
		n = config.DefaultMaxPreviewDates
	}
	return min(n, config.MaxPreviewDates)
}

func toPreviewResponse(p model.Preview) previewResponse {
	dates := make([]string, 0, len(p.GeneratedDates))
	for _, d := range p.GeneratedDates {
		dates = append(dates, recurrence.FormatDate(d))
	}

	resp := previewResponse{
		Recurrence:       recurrence.DefinitionOf(p.Config),
		Dates:            dates,
		IsValid:          p.IsValid,
		Errors:           p.Errors,
		Warnings:         p.Warnings,
		Findings:         p.Findings,
		ValidationErrors: p.ValidationErrors,
	}
	if p.IsValid {
		if rule, err := ics.RRuleFor(p.Config); err == nil {
			resp.RRule = rule
		}
	}
	return resp
}

// fieldValue decodes the raw JSON value of a form field into the Go type
// recurrence.ValidateField expects for it. A missing or null value is nil.
func fieldValue(field string, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch field {
	case recurrence.FieldStartDate, recurrence.FieldEndDate:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		t, err := recurrence.ParseDate(s)
		if err != nil {
			return nil, err
		}
		return t, nil

	case recurrence.FieldInterval:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return nil, err
		}
		return n, nil

	case recurrence.FieldWeeklyDays:
		var days []recurrence.WeekDay
		if err := json.Unmarshal(raw, &days); err != nil {
			return nil, err
		}
		return days, nil

	default:
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
