package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "github.com/kiranshivaraju/interviewbot/internal/api/middleware"
	"github.com/kiranshivaraju/interviewbot/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	RateLimit *mw.RateLimit

	HealthHandler       http.HandlerFunc
	ListReportsHandler  http.HandlerFunc
	LatestReportHandler http.HandlerFunc
	GetReportHandler    http.HandlerFunc
	GetSessionHandler   http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	r.Group(func(r chi.Router) {
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit.Limit)
		}

		r.Get("/api/v1/reports", orNotImplemented(deps.ListReportsHandler))
		// Registered before the parameter route so "latest" is never read as an id.
		r.Get("/api/v1/reports/latest", orNotImplemented(deps.LatestReportHandler))
		r.Get("/api/v1/reports/{candidateID}", orNotImplemented(deps.GetReportHandler))

		r.Get("/api/v1/sessions/{sessionID}", orNotImplemented(deps.GetSessionHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
