package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kiranshivaraju/interviewbot/internal/api/response"
	"github.com/kiranshivaraju/interviewbot/internal/report"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ReportReader defines the report lookups the handlers depend on.
type ReportReader interface {
	List() ([]models.ReportSummary, error)
	Get(candidateID string) (*models.CandidateReport, error)
	Latest() (*models.CandidateReport, error)
}

// NewListReportsHandler returns an http.HandlerFunc for GET /api/v1/reports.
// Reports are listed newest first, paginated with ?page= and ?limit=.
func NewListReportsHandler(reports ReportReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, limit, ok := pagination(w, r)
		if !ok {
			return
		}

		all, err := reports.List()
		if err != nil {
			slog.Error("list reports", "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not list reports", nil)
			return
		}

		start := (page - 1) * limit
		if start > len(all) {
			start = len(all)
		}
		end := start + limit
		if end > len(all) {
			end = len(all)
		}

		response.Collection(w, all[start:end], response.PaginationMeta{
			Page:    page,
			Limit:   limit,
			Total:   len(all),
			HasNext: end < len(all),
		})
	}
}

// NewLatestReportHandler returns an http.HandlerFunc for GET /api/v1/reports/latest.
func NewLatestReportHandler(reports ReportReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := reports.Latest()
		writeReport(w, rep, err)
	}
}

// NewGetReportHandler returns an http.HandlerFunc for GET /api/v1/reports/{candidateID}.
func NewGetReportHandler(reports ReportReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rep, err := reports.Get(chi.URLParam(r, "candidateID"))
		writeReport(w, rep, err)
	}
}

func writeReport(w http.ResponseWriter, rep *models.CandidateReport, err error) {
	switch {
	case errors.Is(err, report.ErrNotFound):
		response.NotFound(w, "REPORT_NOT_FOUND", "Report not found")
	case err != nil:
		slog.Error("read report", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not read report", nil)
	default:
		response.JSON(w, rep)
	}
}

func pagination(w http.ResponseWriter, r *http.Request) (page, limit int, ok bool) {
	page, limit = 1, defaultPageLimit
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "page must be a positive integer", nil)
			return 0, 0, false
		}
		page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "limit must be a positive integer", nil)
			return 0, 0, false
		}
		limit = min(n, maxPageLimit)
	}
	return page, limit, true
}
