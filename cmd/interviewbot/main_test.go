package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/cache"
	"github.com/kiranshivaraju/interviewbot/internal/config"
	"github.com/kiranshivaraju/interviewbot/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.AI.Provider = "mock"
	cfg.Paths.Reports = filepath.Join(t.TempDir(), "reports")
	cfg.Paths.Recordings = filepath.Join(t.TempDir(), "recordings")
	return cfg
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(&Dependencies{Config: cfg})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeTranscript(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// ─── score ───────────────────────────────────────────────────────────────────

func TestScoreCmd_WritesReport(t *testing.T) {
	cfg := testConfig(t)
	path := writeTranscript(t, "jane_doe_annotated.txt",
		"Interviewer: Tell me about a project you led.\n"+
			"Candidate: I led the billing migration and I am proud of how well it went.\n"+
			"Interviewer: How did you test it?\n"+
			"Candidate: We tested it with shadow traffic for two weeks.\n")

	out, err := execute(t, cfg, "score", path)
	require.NoError(t, err)
	assert.Contains(t, out, "JSON report:")
	assert.Contains(t, out, "Text report:")

	summaries, err := report.NewRepository(cfg.Paths.Reports).List()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "jane_doe", summaries[0].CandidateID)
}

func TestScoreCmd_CandidateFlag(t *testing.T) {
	cfg := testConfig(t)
	path := writeTranscript(t, "t.txt", "Interviewer: Why us?\nCandidate: I like the product.\n")

	_, err := execute(t, cfg, "score", "--candidate", "abc-defg-hij", path)
	require.NoError(t, err)

	rep, err := report.NewRepository(cfg.Paths.Reports).Get("abc-defg-hij")
	require.NoError(t, err)
	assert.Equal(t, 1, rep.ExchangeCount)
}

func TestScoreCmd_NoResponses(t *testing.T) {
	cfg := testConfig(t)
	path := writeTranscript(t, "silent.txt", "Interviewer: Hello? Can you hear me?\n")

	out, err := execute(t, cfg, "score", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No report written")

	_, err = os.Stat(cfg.Paths.Reports)
	assert.True(t, os.IsNotExist(err), "no report directory should be created")
}

func TestScoreCmd_Errors(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, cfg, "score", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorContains(t, err, "open transcript")

	_, err = execute(t, cfg, "score")
	assert.Error(t, err)
}

func TestCandidateFromPath(t *testing.T) {
	assert.Equal(t, "meeting_audio_20260304_140509", candidateFromPath("/rec/meeting_audio_20260304_140509_annotated.txt"))
	assert.Equal(t, "notes", candidateFromPath("notes.txt"))
	assert.Equal(t, "plain", candidateFromPath("plain"))
}

// ─── join ────────────────────────────────────────────────────────────────────

func TestJoinCmd_RequiresLink(t *testing.T) {
	_, err := execute(t, testConfig(t), "join")
	assert.Error(t, err)
}

// ─── wiring ──────────────────────────────────────────────────────────────────

func TestNewCache_MemoryWhenNoURL(t *testing.T) {
	c, closeFn, err := newCache(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &cache.MemoryCache{}, c)
}

func TestNewCache_BadRedisURL(t *testing.T) {
	_, _, err := newCache(context.Background(), config.RedisConfig{URL: "redis://127.0.0.1:1/0"})
	assert.ErrorContains(t, err, "ping redis")
}

func TestNewController_UnknownSpeechProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.Speech.Provider = "carrier-pigeon"
	_, err := newController(cfg, cache.NewMemoryCache())
	assert.ErrorContains(t, err, "unknown speech provider")
}

func TestNewController(t *testing.T) {
	ctrl, err := newController(testConfig(t), cache.NewMemoryCache())
	require.NoError(t, err)
	assert.NotNil(t, ctrl)
}

func TestRouter_HealthAndReports(t *testing.T) {
	cfg := testConfig(t)
	router := newRouter(cfg, cache.NewMemoryCache())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/reports/latest", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "REPORT_NOT_FOUND")
}

func TestServe_StopsOnCancel(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- serve(ctx, srv) }()
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestServe_ListenError(t *testing.T) {
	srv := &http.Server{Addr: "not-a-valid-address", Handler: http.NotFoundHandler()}
	err := serve(context.Background(), srv)
	assert.ErrorContains(t, err, "server error")
}

func TestCheckSpeech_HitsDiarizerHealth(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			hits++
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := testConfig(t)
	cfg.Speech.DiarizerURL = ts.URL
	checkSpeech(context.Background(), cfg)
	assert.Equal(t, 1, hits)
}
