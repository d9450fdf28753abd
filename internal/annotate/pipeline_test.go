package annotate_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kiranshivaraju/interviewbot/internal/annotate"
	"github.com/kiranshivaraju/interviewbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	spans []models.TextSpan
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, _ string) ([]models.TextSpan, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.spans, f.err
}

func (f *fakeTranscriber) Name() string { return "fake-stt" }

type fakeDiarizer struct {
	spans []models.SpeakerSpan
	err   error
	delay time.Duration
}

func (f *fakeDiarizer) Diarize(ctx context.Context, _ string) ([]models.SpeakerSpan, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.spans, f.err
}

func (f *fakeDiarizer) Name() string { return "fake-diarizer" }

func TestAlign_MaximalOverlap(t *testing.T) {
	text := []models.TextSpan{
		{Start: 0, End: 4, Text: "Tell me about yourself."},
		{Start: 4.5, End: 10, Text: "I build distributed systems."},
	}
	speakers := []models.SpeakerSpan{
		{Start: 0, End: 4.2, Label: "SPEAKER_00"},
		{Start: 4.2, End: 5, Label: "SPEAKER_00"},
		{Start: 5, End: 10, Label: "SPEAKER_01"},
	}

	turns := annotate.Align(text, speakers, annotate.DefaultLabels)
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleInterviewer, turns[0].Role)
	assert.Equal(t, "Interviewer", turns[0].Speaker)
	assert.Equal(t, models.RoleCandidate, turns[1].Role)
	assert.Equal(t, "I build distributed systems.", turns[1].Text)
}

func TestAlign_TieAndNoOverlapAreUnknown(t *testing.T) {
	text := []models.TextSpan{
		{Start: 0, End: 2, Text: "split evenly"},
		{Start: 20, End: 22, Text: "silence gap"},
	}
	speakers := []models.SpeakerSpan{
		{Start: 0, End: 1, Label: "SPEAKER_00"},
		{Start: 1, End: 2, Label: "SPEAKER_01"},
	}

	turns := annotate.Align(text, speakers, annotate.DefaultLabels)
	require.Len(t, turns, 1, "both spans resolve to Unknown and merge")
	assert.Equal(t, models.RoleUnknown, turns[0].Role)
	assert.Equal(t, "split evenly silence gap", turns[0].Text)
	assert.Equal(t, 0.0, turns[0].Start)
	assert.Equal(t, 22.0, turns[0].End)
}

func TestAlign_MergesAdjacentSameSpeakerAndSortsByStart(t *testing.T) {
	text := []models.TextSpan{
		{Start: 6, End: 8, Text: "Second part."},
		{Start: 0, End: 3, Text: "Question?"},
		{Start: 3, End: 6, Text: "First part."},
	}
	speakers := []models.SpeakerSpan{
		{Start: 0, End: 3, Label: "SPEAKER_00"},
		{Start: 3, End: 8, Label: "SPEAKER_01"},
	}

	turns := annotate.Align(text, speakers, annotate.DefaultLabels)
	require.Len(t, turns, 2)
	assert.Equal(t, "Question?", turns[0].Text)
	assert.Equal(t, "First part. Second part.", turns[1].Text)
	assert.Equal(t, 3.0, turns[1].Start)
	assert.Equal(t, 8.0, turns[1].End)
}

func TestAlign_CustomLabelMap(t *testing.T) {
	text := []models.TextSpan{{Start: 0, End: 2, Text: "Hello"}}
	speakers := []models.SpeakerSpan{{Start: 0, End: 2, Label: "SPEAKER_00"}}

	turns := annotate.Align(text, speakers, map[string]string{"SPEAKER_00": "Candidate"})
	require.Len(t, turns, 1)
	assert.Equal(t, models.RoleCandidate, turns[0].Role)
}

func TestAlign_UnmappedLabelKeptButUnknownRole(t *testing.T) {
	text := []models.TextSpan{{Start: 0, End: 2, Text: "Hello"}}
	speakers := []models.SpeakerSpan{{Start: 0, End: 2, Label: "SPEAKER_02"}}

	turns := annotate.Align(text, speakers, annotate.DefaultLabels)
	require.Len(t, turns, 1)
	assert.Equal(t, "SPEAKER_02", turns[0].Speaker)
	assert.Equal(t, models.RoleUnknown, turns[0].Role)
}

func TestAlign_SkipsBlankText(t *testing.T) {
	text := []models.TextSpan{{Start: 0, End: 1, Text: "   "}}
	assert.Empty(t, annotate.Align(text, nil, nil))
}

func TestAnnotate_WritesTranscript(t *testing.T) {
	dir := t.TempDir()
	recording := filepath.Join(dir, "meeting_audio_20261015_090000.wav")
	require.NoError(t, os.WriteFile(recording, []byte("RIFF"), 0o644))

	stt := &fakeTranscriber{
		delay: 50 * time.Millisecond,
		spans: []models.TextSpan{
			{Start: 0, End: 3, Text: "What is a goroutine?"},
			{Start: 3, End: 8, Text: "A lightweight thread managed by the runtime."},
		},
	}
	dia := &fakeDiarizer{
		delay: 50 * time.Millisecond,
		spans: []models.SpeakerSpan{
			{Start: 0, End: 3, Label: "SPEAKER_00"},
			{Start: 3, End: 8, Label: "SPEAKER_01"},
		},
	}

	tr, err := annotate.New(stt, dia, nil).Annotate(context.Background(), recording)
	require.NoError(t, err)
	require.Len(t, tr.Turns, 2)
	assert.Equal(t, filepath.Join(dir, "meeting_audio_20261015_090000_annotated.txt"), tr.Path)

	data, err := os.ReadFile(tr.Path)
	require.NoError(t, err)
	assert.Equal(t,
		"Interviewer: What is a goroutine?\nCandidate: A lightweight thread managed by the runtime.\n",
		string(data))
}

func TestAnnotate_CollaboratorErrorFails(t *testing.T) {
	dir := t.TempDir()
	recording := filepath.Join(dir, "rec.wav")

	stt := &fakeTranscriber{delay: time.Second}
	dia := &fakeDiarizer{err: errors.New("model not loaded")}

	start := time.Now()
	_, err := annotate.New(stt, dia, nil).Annotate(context.Background(), recording)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fake-diarizer")
	assert.Less(t, time.Since(start), time.Second, "failing diarizer cancels transcription")

	_, statErr := os.Stat(annotate.AnnotatedPath(recording))
	assert.True(t, os.IsNotExist(statErr))
}

func TestParseTranscript(t *testing.T) {
	input := `Interviewer: Tell me about a hard bug.
Candidate: A race in our cache layer.
We fixed it with a mutex.

interviewer: Why a mutex?
Interviewee: Simplicity.
Note to self: this line continues the answer.
`
	turns, err := annotate.ParseTranscript(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, turns, 4)

	assert.Equal(t, models.RoleInterviewer, turns[0].Role)
	assert.Equal(t, "Tell me about a hard bug.", turns[0].Text)
	assert.Equal(t, models.RoleCandidate, turns[1].Role)
	assert.Equal(t, "A race in our cache layer. We fixed it with a mutex.", turns[1].Text)
	assert.Equal(t, models.RoleInterviewer, turns[2].Role)
	assert.Equal(t, models.RoleCandidate, turns[3].Role)
	assert.Equal(t, "Simplicity. Note to self: this line continues the answer.", turns[3].Text)
}

func TestParseTranscript_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t_annotated.txt")
	turns := []models.TranscriptTurn{
		{Role: models.RoleInterviewer, Speaker: "Interviewer", Text: "Q1?"},
		{Role: models.RoleCandidate, Speaker: "Candidate", Text: "A1."},
		{Role: models.RoleUnknown, Speaker: "Unknown", Text: "cough"},
	}
	require.NoError(t, annotate.WriteTranscript(path, turns))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	got, err := annotate.ParseTranscript(f)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range turns {
		assert.Equal(t, turns[i].Role, got[i].Role)
		assert.Equal(t, turns[i].Text, got[i].Text)
	}
}
