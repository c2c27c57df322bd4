package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appscans "github.com/bryanwahyu/secscan/internal/application/scans"
	domai "github.com/bryanwahyu/secscan/internal/domain/ai"
	domain "github.com/bryanwahyu/secscan/internal/domain/scans"
	"github.com/bryanwahyu/secscan/internal/infra/report"
	"github.com/bryanwahyu/secscan/internal/logger"
	"github.com/bryanwahyu/secscan/internal/middleware"
)

// Options configure the report API.
type Options struct {
	APIKey      string   // empty disables POST /v1/scans
	Origins     []string // CORS origins; empty allows none cross-origin
	Health      map[string]middleware.HealthChecker
	ScansPerMin int // rate limit for scan triggers
	ScanBurst   int
	Log         *logger.Logger
}

type Router struct {
	scansSvc *appscans.Service
}

func NewRouter(scansSvc *appscans.Service, opts Options) http.Handler {
	r := &Router{scansSvc: scansSvc}
	mux := chi.NewRouter()

	mux.Use(middleware.AccessLog(opts.Log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.Origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(opts.Health))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1", func(rt chi.Router) {
		rt.Get("/scans/latest", r.wrap(r.handleLatest))
		rt.Get("/scans/trend", r.wrap(r.handleTrend))
		rt.Get("/scans/{id}", r.wrap(r.handleGet))
		rt.Get("/scans/{id}/skipped", r.wrap(r.handleSkipped))
		rt.Get("/reports/summary.json", r.wrap(r.handleReport(report.SummaryJSON, "application/json")))
		rt.Get("/reports/summary.md", r.wrap(r.handleReport(report.SummaryMD, "text/markdown; charset=utf-8")))
		rt.Get("/reports/advice.md", r.wrap(r.handleReport(report.AdviceMD, "text/markdown; charset=utf-8")))

		rt.Group(func(p chi.Router) {
			if opts.APIKey == "" {
				p.Use(func(http.Handler) http.Handler {
					return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
						http.Error(w, "scan trigger disabled: no API key configured", http.StatusForbidden)
					})
				})
			} else {
				p.Use(middleware.APIKeyAuth(map[string]string{"default": opts.APIKey}))
			}
			burst, perMin := opts.ScanBurst, opts.ScansPerMin
			if burst <= 0 {
				burst = 2
			}
			if perMin <= 0 {
				perMin = 6
			}
			p.Use(middleware.RateLimitMiddleware(burst, perMin))
			p.Post("/scans", r.wrap(r.handleTriggerScan))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client errors.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			var br badRequest
			switch {
			case errors.As(err, &br):
				http.Error(w, br.msg, http.StatusBadRequest)
			case errors.Is(err, sql.ErrNoRows), errors.Is(err, fs.ErrNotExist):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, appscans.ErrInterrupted):
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
			case errors.Is(err, appscans.ErrHistoryDisabled):
				http.Error(w, err.Error(), http.StatusNotImplemented)
			case errors.Is(err, domai.ErrQuotaExceeded):
				http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /v1/scans
// Body (optional): {"export_only": false, "ai_review": false}
// Runs one scan synchronously and returns the summary.
func (r *Router) handleTriggerScan(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		ExportOnly bool `json:"export_only"`
		AIReview   bool `json:"ai_review"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return badRequest{"invalid JSON body"}
	}

	done := middleware.ScanStarted()
	res, err := r.scansSvc.Run(req.Context(), appscans.RunOptions{
		ExportOnly: body.ExportOnly,
		AIReview:   body.AIReview,
	})
	done(err != nil)
	if err != nil {
		return err
	}
	middleware.RecordRun(res.Run.Score, res.Run.Counts.High, len(res.Run.SkippedChecks))
	return writeJSON(w, http.StatusOK, res)
}

// GET /v1/scans/latest?limit=
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	runs, err := r.scansSvc.Latest(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, runs)
}

// GET /v1/scans/trend?days=
func (r *Router) handleTrend(w http.ResponseWriter, req *http.Request) error {
	days, _ := strconv.Atoi(req.URL.Query().Get("days"))
	t, err := r.scansSvc.Trend(req.Context(), middleware.ValidateDays(days))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, t)
}

// GET /v1/scans/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return badRequest{err.Error()}
	}
	run, err := r.scansSvc.Get(req.Context(), domain.RunID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, run)
}

// GET /v1/scans/{id}/skipped
func (r *Router) handleSkipped(w http.ResponseWriter, req *http.Request) error {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return badRequest{err.Error()}
	}
	list, err := r.scansSvc.SkippedFor(req.Context(), domain.RunID(id))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/reports/{file} serves the latest report from the report directory.
func (r *Router) handleReport(name, contentType string) handlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		data, err := os.ReadFile(filepath.Join(r.scansSvc.ReportDir, name))
		if err != nil {
			return err
		}
		w.Header().Set("Content-Type", contentType)
		_, err = w.Write(data)
		return err
	}
}
