package sidecar_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/ai/sidecar"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, sentimentLabel string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/sentiment":
			var req struct{ Text string }
			json.NewDecoder(r.Body).Decode(&req)
			json.NewEncoder(w).Encode(map[string]any{"label": sentimentLabel, "score": 0.93})
		case "/embed":
			var req struct{ Texts []string }
			json.NewDecoder(r.Body).Decode(&req)
			out := make([][]float64, len(req.Texts))
			for i := range out {
				out[i] = []float64{float64(i), 1}
			}
			json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
		case "/summarize":
			json.NewEncoder(w).Encode(map[string]any{"summary": "  Solid backend experience.  "})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestProvider_ClassifySentiment(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"POSITIVE", models.SentimentPositive},
		{"neutral", models.SentimentNeutral},
		{"LABEL_0", models.SentimentNegative},
		{"LABEL_2", models.SentimentPositive},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ts := newServer(t, tt.raw)
			defer ts.Close()

			s, err := sidecar.NewProvider(ts.URL, time.Second).ClassifySentiment(context.Background(), "answer")
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Label)
			assert.InDelta(t, 0.93, s.Score, 1e-9)
		})
	}
}

func TestProvider_UnknownLabel(t *testing.T) {
	ts := newServer(t, "ambivalent")
	defer ts.Close()

	_, err := sidecar.NewProvider(ts.URL, time.Second).ClassifySentiment(context.Background(), "answer")
	assert.ErrorIs(t, err, sidecar.ErrBadResponse)
}

func TestProvider_Embed(t *testing.T) {
	ts := newServer(t, "neutral")
	defer ts.Close()

	vecs, err := sidecar.NewProvider(ts.URL+"/", time.Second).Embed(context.Background(), []string{"q", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 1}}, vecs)
}

func TestProvider_Summarize(t *testing.T) {
	ts := newServer(t, "neutral")
	defer ts.Close()

	s, err := sidecar.NewProvider(ts.URL, time.Second).Summarize(context.Background(), "long text")
	require.NoError(t, err)
	assert.Equal(t, "Solid backend experience.", s)
}

func TestProvider_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := sidecar.NewProvider(ts.URL, time.Second).Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, sidecar.ErrBadResponse)
}

func TestProvider_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := sidecar.NewProvider(url, time.Second).Embed(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, sidecar.ErrUnavailable)
}

func TestProvider_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()

	_, err := sidecar.NewProvider(ts.URL, 50*time.Millisecond).Summarize(context.Background(), "x")
	assert.ErrorIs(t, err, sidecar.ErrTimeout)
}
