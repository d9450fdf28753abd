// Package capture records call audio from a device into a WAV file while a
// session is in progress.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kiranshivaraju/interviewbot/pkg/models"
)

// ErrDeviceUnavailable is returned by Start when the capture device cannot be opened.
var ErrDeviceUnavailable = errors.New("capture device unavailable")

const (
	bitDepth        = 16
	wavFormatPCM    = 1
	segmentBacklog  = 64
	filenamePrefix  = "meeting_audio_"
	timestampLayout = "20060102_150405"
)

// Device opens an audio input.
type Device interface {
	Open(ctx context.Context, sampleRate, channels int) (Stream, error)
}

// Stream yields interleaved 16-bit PCM samples. Close must unblock a pending Read.
type Stream interface {
	Read(samples []int) (int, error)
	Close() error
}

// Config controls the recording format and stop latency.
type Config struct {
	SampleRate int
	Channels   int
	// FrameSize is the number of frames requested per device read.
	FrameSize int
	// PollInterval bounds how long the writer waits for the reader to exit
	// once a stop is requested.
	PollInterval time.Duration
}

// DefaultConfig returns 44.1 kHz stereo with 4096-frame reads.
func DefaultConfig() Config {
	return Config{
		SampleRate:   44100,
		Channels:     2,
		FrameSize:    4096,
		PollInterval: time.Second,
	}
}

// Service starts capture tasks against a device.
type Service struct {
	device Device
	cfg    Config
	now    func() time.Time
}

// NewService creates a capture Service. Zero config fields take their defaults.
func NewService(device Device, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = def.FrameSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	return &Service{device: device, cfg: cfg, now: time.Now}
}

// Start acquires the device and begins writing meeting_audio_<ts>.wav in dir.
// No file is created when the device cannot be opened.
func (s *Service) Start(ctx context.Context, dir string) (*Handle, error) {
	stream, err := s.device.Open(ctx, s.cfg.SampleRate, s.cfg.Channels)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		stream.Close()
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}

	path := filepath.Join(dir, filenamePrefix+s.now().Format(timestampLayout)+".wav")
	f, err := os.Create(path)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("create recording file: %w", err)
	}

	enc := wav.NewEncoder(f, s.cfg.SampleRate, bitDepth, s.cfg.Channels, wavFormatPCM)
	// An empty first write emits the RIFF header so the file is valid even if
	// no audio ever arrives.
	if err := enc.Write(s.intBuffer(nil)); err != nil {
		stream.Close()
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("write wav header: %w", err)
	}

	h := newHandle(path)
	segments := make(chan models.AudioSegment, segmentBacklog)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})

	go s.readLoop(stream, h.stop, segments, readErr, readerDone)
	go s.writeLoop(ctx, h, stream, enc, f, segments, readErr, readerDone)

	slog.Info("audio capture started", "path", path, "sample_rate", s.cfg.SampleRate, "channels", s.cfg.Channels)
	return h, nil
}

func (s *Service) intBuffer(data []int) *audio.IntBuffer {
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: s.cfg.Channels, SampleRate: s.cfg.SampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
}

func (s *Service) readLoop(stream Stream, stop <-chan struct{}, out chan<- models.AudioSegment, readErr chan<- error, done chan<- struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			readErr <- fmt.Errorf("capture reader panic: %v", r)
		}
	}()

	samplesPerRead := s.cfg.FrameSize * s.cfg.Channels
	var frames int
	for {
		buf := make([]int, samplesPerRead)
		n, err := stream.Read(buf)
		if n > 0 {
			n -= n % s.cfg.Channels
			start := s.offset(frames)
			frames += n / s.cfg.Channels
			seg := models.AudioSegment{Start: start, End: s.offset(frames), Frames: buf[:n]}
			select {
			case out <- seg:
			case <-stop:
				return
			}
		}
		if err != nil {
			readErr <- err
			return
		}
	}
}

func (s *Service) offset(frames int) time.Duration {
	return time.Duration(frames) * time.Second / time.Duration(s.cfg.SampleRate)
}

func (s *Service) writeLoop(ctx context.Context, h *Handle, stream Stream, enc *wav.Encoder, f *os.File,
	segments <-chan models.AudioSegment, readErr <-chan error, readerDone <-chan struct{}) {

	var (
		frames int
		runErr error
	)

	write := func(seg models.AudioSegment) error {
		if err := enc.Write(s.intBuffer(seg.Frames)); err != nil {
			return fmt.Errorf("write audio: %w", err)
		}
		frames += len(seg.Frames) / s.cfg.Channels
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("capture writer panic: %v", r)
		}

		// Release a reader blocked on a full segment channel.
		h.Stop()
		stream.Close()
		select {
		case <-readerDone:
		case <-time.After(s.cfg.PollInterval):
			slog.Warn("capture reader did not exit after stop", "path", h.path)
		}

		// Flush whatever the reader queued before it stopped.
		if runErr == nil {
		drain:
			for {
				select {
				case seg := <-segments:
					if err := write(seg); err != nil {
						runErr = err
						break drain
					}
				default:
					break drain
				}
			}
		}

		if err := enc.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("finalize wav: %w", err)
		}
		if err := f.Close(); err != nil && runErr == nil {
			runErr = fmt.Errorf("close recording file: %w", err)
		}

		h.finish(Result{
			Path:     h.path,
			Frames:   frames,
			Duration: s.offset(frames),
			Err:      runErr,
		})
	}()

	for {
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		case seg := <-segments:
			if err := write(seg); err != nil {
				runErr = err
				slog.Error("audio capture write failed", "path", h.path, "error", err)
				return
			}
		case err := <-readErr:
			// Keep anything read before the failure.
			for len(segments) > 0 {
				if werr := write(<-segments); werr != nil {
					runErr = werr
					return
				}
			}
			if !errors.Is(err, io.EOF) {
				runErr = fmt.Errorf("read audio: %w", err)
				slog.Error("audio capture read failed", "path", h.path, "error", err)
			}
			return
		}
	}
}
