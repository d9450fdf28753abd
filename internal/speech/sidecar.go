// Package speech adapts speech-to-text and diarization services to the
// models.Transcriber and models.Diarizer interfaces.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// Sentinel errors for speech service failures.
var (
	ErrSpeechUnavailable = errors.New("speech service unavailable")
	ErrSpeechTimeout     = errors.New("speech service timeout")
	ErrSpeechResponse    = errors.New("speech service returned invalid response")
)

// SidecarClient talks to a local HTTP service hosting the speech models.
// POST /transcribe and POST /diarize both take the recording as a multipart
// "file" field and return {"segments": [...]}.
type SidecarClient struct {
	baseURL string
	client  *http.Client
}

// NewSidecarClient creates a client for the service at baseURL.
func NewSidecarClient(baseURL string, timeout time.Duration) *SidecarClient {
	return &SidecarClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// SidecarTranscriber implements models.Transcriber over a SidecarClient.
type SidecarTranscriber struct{ c *SidecarClient }

// SidecarDiarizer implements models.Diarizer over a SidecarClient.
type SidecarDiarizer struct{ c *SidecarClient }

// NewSidecarTranscriber creates a transcriber for the service at baseURL.
func NewSidecarTranscriber(baseURL string, timeout time.Duration) *SidecarTranscriber {
	return &SidecarTranscriber{c: NewSidecarClient(baseURL, timeout)}
}

// NewSidecarDiarizer creates a diarizer for the service at baseURL.
func NewSidecarDiarizer(baseURL string, timeout time.Duration) *SidecarDiarizer {
	return &SidecarDiarizer{c: NewSidecarClient(baseURL, timeout)}
}

func (t *SidecarTranscriber) Name() string { return "sidecar-stt" }

func (t *SidecarTranscriber) Transcribe(ctx context.Context, audioPath string) ([]models.TextSpan, error) {
	var resp struct {
		Segments []models.TextSpan `json:"segments"`
	}
	if err := t.c.post(ctx, "/transcribe", audioPath, &resp); err != nil {
		return nil, err
	}
	if resp.Segments == nil {
		return []models.TextSpan{}, nil
	}
	return resp.Segments, nil
}

func (d *SidecarDiarizer) Name() string { return "sidecar-diarizer" }

func (d *SidecarDiarizer) Diarize(ctx context.Context, audioPath string) ([]models.SpeakerSpan, error) {
	var resp struct {
		Segments []models.SpeakerSpan `json:"segments"`
	}
	if err := d.c.post(ctx, "/diarize", audioPath, &resp); err != nil {
		return nil, err
	}
	if resp.Segments == nil {
		return []models.SpeakerSpan{}, nil
	}
	return resp.Segments, nil
}

// Ready checks the sidecar health endpoint.
func (c *SidecarClient) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: sidecar not ready (status %d)", ErrSpeechUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *SidecarClient) post(ctx context.Context, path, audioPath string, out any) error {
	body, contentType, err := multipartFile(audioPath)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s status %d: %s", ErrSpeechResponse, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding %s response: %v", ErrSpeechResponse, path, err)
	}
	return nil
}

func multipartFile(audioPath string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy recording: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSpeechTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSpeechTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrSpeechUnavailable, err)
}

var (
	_ models.Transcriber = (*SidecarTranscriber)(nil)
	_ models.Diarizer    = (*SidecarDiarizer)(nil)
)
