package capture

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// FFmpegDevice captures audio by running ffmpeg and reading raw s16le PCM from
// its stdout. Format and Input are passed to ffmpeg's -f and -i flags, e.g.
// "pulse" and "default" on Linux or "avfoundation" and ":0" on macOS.
type FFmpegDevice struct {
	Format string
	Input  string
	// StartTimeout bounds the wait for the first samples when opening.
	StartTimeout time.Duration
}

// NewFFmpegDevice creates an FFmpegDevice.
func NewFFmpegDevice(format, input string) *FFmpegDevice {
	return &FFmpegDevice{Format: format, Input: input, StartTimeout: 5 * time.Second}
}

// Open starts ffmpeg and waits for it to produce audio. An error means the
// device could not be acquired.
func (d *FFmpegDevice) Open(ctx context.Context, sampleRate, channels int) (Stream, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner",
		"-loglevel", "error",
		"-f", d.Format,
		"-i", d.Input,
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-",
	)
	cmd.Stderr = &stderrLogger{}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegStream{cmd: cmd, r: bufio.NewReaderSize(stdout, 64<<10)}

	firstAudio := make(chan error, 1)
	go func() {
		_, err := s.r.Peek(2 * channels)
		firstAudio <- err
	}()

	timeout := d.StartTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	select {
	case err := <-firstAudio:
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("ffmpeg produced no audio: %w", err)
		}
	case <-time.After(timeout):
		s.Close()
		return nil, errors.New("timed out waiting for ffmpeg audio")
	case <-ctx.Done():
		s.Close()
		return nil, ctx.Err()
	}
	return s, nil
}

type ffmpegStream struct {
	cmd       *exec.Cmd
	r         *bufio.Reader
	closeOnce sync.Once
	raw       []byte
}

// Read fills samples with little-endian 16-bit PCM decoded from ffmpeg.
func (s *ffmpegStream) Read(samples []int) (int, error) {
	need := len(samples) * 2
	if cap(s.raw) < need {
		s.raw = make([]byte, need)
	}
	raw := s.raw[:need]

	n, err := io.ReadAtLeast(s.r, raw, 2)
	n -= n % 2
	for i := 0; i < n/2; i++ {
		samples[i] = int(int16(binary.LittleEndian.Uint16(raw[2*i:])))
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n / 2, err
}

// Close stops ffmpeg and reaps the process.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process == nil {
			return
		}
		if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
			s.cmd.Process.Kill()
		}
		waited := make(chan error, 1)
		go func() { waited <- s.cmd.Wait() }()
		select {
		case <-waited:
		case <-time.After(3 * time.Second):
			s.cmd.Process.Kill()
			<-waited
		}
	})
	return nil
}

// stderrLogger forwards ffmpeg diagnostics to the structured log.
type stderrLogger struct{}

func (stderrLogger) Write(p []byte) (int, error) {
	slog.Warn("ffmpeg", "output", string(p))
	return len(p), nil
}
