// Package ui exposes the decision engine over HTTP.
package ui

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/semaphore"

	"launchlab/app"
	"launchlab/internal"
)

// App represents the HTTP application
type App struct {
	router  *chi.Mux
	service *app.DecisionService
	logger  *internal.Logger

	// Bounds concurrent Monte-Carlo analyses; each one burns a full
	// simulation budget per request.
	analyzeSem *semaphore.Weighted
}

// Config holds HTTP application configuration
type Config struct {
	Port                  string
	MaxConcurrentAnalyses int
}

// NewApp creates a new HTTP application
func NewApp(config Config, service *app.DecisionService, logger *internal.Logger) *App {
	maxAnalyses := config.MaxConcurrentAnalyses
	if maxAnalyses <= 0 {
		maxAnalyses = 4
	}

	a := &App{
		router:     chi.NewRouter(),
		service:    service,
		logger:     logger,
		analyzeSem: semaphore.NewWeighted(int64(maxAnalyses)),
	}

	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/health", a.handleHealth)

	// Analysis
	a.router.Post("/api/runs/{runID}/analyze", a.handleAnalyze)
	a.router.Post("/api/runs/{runID}/quick", a.handleQuick)

	// Run decisions
	a.router.Get("/api/runs/{runID}/decisions", a.handleDecisionHistory)
	a.router.Get("/api/runs/{runID}/decisions/latest", a.handleLatestDecision)
	a.router.Get("/api/runs/{runID}/decisions/final", a.handleFinalDecision)
	a.router.Get("/api/runs/{runID}/report", a.handleRunReport)

	// Individual decisions
	a.router.Get("/api/decisions/{decisionID}", a.handleGetDecision)
	a.router.Post("/api/decisions/{decisionID}/finalize", a.handleFinalize)
	a.router.Post("/api/decisions/{decisionID}/replay", a.handleReplay)
	a.router.Get("/api/decisions/{decisionID}/report", a.handleReport)
}

// Router returns the underlying router for embedding in a server
func (a *App) Router() http.Handler {
	return a.router
}

// Serve starts the HTTP server on the configured port and blocks
func (a *App) Serve(port string) error {
	addr := fmt.Sprintf(":%s", port)
	a.logger.Info("decision API listening on %s", addr)
	return http.ListenAndServe(addr, a.router)
}
