package handler

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/api/response"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health. It
// checks the status cache and that the reports directory is readable.
func NewHealthHandler(cache Pinger, reportsDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"cache": "ok", "reports": "ok"}
		degraded := false
		if err := cache.Ping(ctx); err != nil {
			checks["cache"] = "degraded"
			degraded = true
		}
		if _, err := os.ReadDir(reportsDir); err != nil && !os.IsNotExist(err) {
			checks["reports"] = "degraded"
			degraded = true
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED", "One or more services degraded", checks)
			return
		}
		response.JSON(w, map[string]string{"status": "ok"})
	}
}
