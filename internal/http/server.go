// Package http serves the JSON API, the two dashboard pages and the
// operational endpoints.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"classfees/internal/auth"
	"classfees/internal/core"
	"classfees/internal/docstore"
	"classfees/internal/log"
	"classfees/internal/metrics"
	"classfees/internal/middleware/ratelimit"
	"classfees/internal/middleware/security"
	"classfees/internal/middleware/trace"
	"classfees/internal/services"
	appweb "classfees/web"
)

// Deps are the collaborators the server routes to.
type Deps struct {
	Students  *services.StudentService
	Payments  *services.PaymentService
	Snapshots *services.Snapshots
	Auth      *auth.Authenticator
	// Store is pinged by /readyz.
	Store   docstore.Store
	Metrics *metrics.Metrics
	Money   Money
	Logger  *log.Logger

	RateLimitPerMinute int
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For.
	TrustedProxies []string
}

type Server struct {
	http.Server

	students  *services.StudentService
	payments  *services.PaymentService
	snapshots *services.Snapshots
	auth      *auth.Authenticator
	store     docstore.Store
	metrics   *metrics.Metrics
	money     Money
	logger    *log.Logger
	templates *template.Template

	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes, middleware and templates. Template errors are
// logged and surface through /readyz.
func NewServer(addr string, d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		students:  d.Students,
		payments:  d.Payments,
		snapshots: d.Snapshots,
		auth:      d.Auth,
		store:     d.Store,
		metrics:   d.Metrics,
		money:     d.Money,
		logger:    logger,
		detector:  security.NewDetector(),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: d.RateLimitPerMinute}),
		started:   time.Now(),
	}
	for _, cidr := range d.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", log.FieldError, err.Error())
		}
	}

	t, err := parseTemplates(s.money)
	if err != nil {
		logger.WithComponent(log.ComponentTemplate).Error("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP, logger, d.Metrics)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)

	// trace reads the matched pattern back from the request it passes down,
	// so nothing between it and the mux may replace the request.
	var handler http.Handler = mux
	handler = limit(handler)
	handler = s.detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = traceMW.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	operator := func(h http.HandlerFunc) http.Handler {
		if s.auth == nil {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, r, fmt.Errorf("operator auth not configured: %w", core.ErrUnauthorized))
			})
		}
		return s.auth.RequireOperator(h)
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /students/{id}", s.handleStudentPage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	mux.HandleFunc("POST /api/auth/token", s.handleIssueToken)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/dashboard/year", s.handleYearBreakdown)

	mux.HandleFunc("GET /api/students", s.handleListStudents)
	mux.Handle("POST /api/students", operator(s.handleCreateStudent))
	mux.Handle("PATCH /api/students/{id}", operator(s.handleUpdateStudent))
	mux.Handle("DELETE /api/students/{id}", operator(s.handleDeleteStudent))
	mux.HandleFunc("GET /api/students/{id}/payments", s.handleStudentPayments)

	mux.HandleFunc("GET /api/payments", s.handleListPayments)
	mux.Handle("POST /api/payments", operator(s.handleCreatePayment))
	mux.Handle("PATCH /api/payments/{id}", operator(s.handleUpdatePayment))
	mux.Handle("DELETE /api/payments/{id}", operator(s.handleDeletePayment))

	mux.Handle("POST /api/import/students", operator(s.handleImportStudents))
	mux.HandleFunc("GET /api/export/ledger.xlsx", s.handleExportLedger)
}

func parseTemplates(money Money) (*template.Template, error) {
	funcs := template.FuncMap{
		"money":       money.Format,
		"placeholder": core.OrPlaceholder,
		"join":        func(v []string) string { return strings.Join(v, ", ") },
		"inc":         func(i int) int { return i + 1 },
		"monthName":   monthName,
	}
	t, err := template.New("pages").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeJSON(w, http.StatusTooManyRequests, ErrorBody{
		Error: "too many write requests, try again shortly",
		Kind:  kindRequest,
	})
}

// Shutdown stops the limiter's cleanup goroutine and drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
