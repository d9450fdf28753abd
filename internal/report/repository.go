package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Repository reads reports written by an Assembler.
type Repository struct {
	dir string
}

// NewRepository creates a Repository over dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

type storedReport struct {
	filename string
	report   *models.CandidateReport
}

// List returns a summary of every readable report, newest first. Unreadable
// files are logged and skipped.
func (r *Repository) List() ([]models.ReportSummary, error) {
	reports, err := r.load("*" + jsonSuffix)
	if err != nil {
		return nil, err
	}
	out := make([]models.ReportSummary, 0, len(reports))
	for _, s := range reports {
		out = append(out, models.ReportSummary{
			Filename:    s.filename,
			CandidateID: s.report.CandidateID,
			CreatedAt:   s.report.CreatedAt,
			Summary:     s.report.Summary,
			Rating:      s.report.Rating,
			Selected:    s.report.Selected,
		})
	}
	return out, nil
}

// Get returns the newest report for candidateID.
func (r *Repository) Get(candidateID string) (*models.CandidateReport, error) {
	if strings.TrimSpace(candidateID) == "" {
		return nil, ErrNotFound
	}
	reports, err := r.load(FileCandidate(candidateID) + "_*" + jsonSuffix)
	if err != nil {
		return nil, err
	}
	for _, s := range reports {
		// The glob also matches ids sharing this prefix.
		if FileCandidate(s.report.CandidateID) == FileCandidate(candidateID) {
			return s.report, nil
		}
	}
	return nil, ErrNotFound
}

// Latest returns the most recently created report.
func (r *Repository) Latest() (*models.CandidateReport, error) {
	reports, err := r.load("*" + jsonSuffix)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, ErrNotFound
	}
	return reports[0].report, nil
}

// load reads every report matching pattern, newest first.
func (r *Repository) load(pattern string) ([]storedReport, error) {
	paths, err := filepath.Glob(filepath.Join(r.dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	reports := make([]storedReport, 0, len(paths))
	for _, p := range paths {
		rep, err := readReport(p)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("skipping unreadable report", "path", p, "error", err)
			}
			continue
		}
		reports = append(reports, storedReport{filename: filepath.Base(p), report: rep})
	}

	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.filename > b.filename
	})
	return reports, nil
}

func readReport(path string) (*models.CandidateReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rep models.CandidateReport
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &rep, nil
}
