package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/kiranshivaraju/interviewbot/internal/api/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func checkHealth(t *testing.T, p handler.Pinger, dir string) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	handler.NewHealthHandler(p, dir)(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestHealth_OK(t *testing.T) {
	code, body := checkHealth(t, pinger{}, t.TempDir())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])
}

func TestHealth_MissingReportsDirIsHealthy(t *testing.T) {
	code, _ := checkHealth(t, pinger{}, filepath.Join(t.TempDir(), "not-yet-created"))
	assert.Equal(t, http.StatusOK, code)
}

func TestHealth_CacheDown(t *testing.T) {
	code, body := checkHealth(t, pinger{err: errors.New("dial tcp: refused")}, t.TempDir())
	assert.Equal(t, http.StatusServiceUnavailable, code)

	errObj := body["error"].(map[string]any)
	assert.Equal(t, "DEGRADED", errObj["code"])
	assert.Equal(t, map[string]any{"cache": "degraded", "reports": "ok"}, errObj["details"])
}

func TestHealth_ReportsPathNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "reports")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	code, body := checkHealth(t, pinger{}, file)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	errObj := body["error"].(map[string]any)
	assert.Equal(t, "degraded", errObj["details"].(map[string]any)["reports"])
}
