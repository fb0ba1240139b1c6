package workflow

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/pkg/models"
)

type fakeIngestor struct {
	result  *models.IngestResult
	err     error
	uploads int
}

func (f *fakeIngestor) Upload(ctx context.Context, filename string, r io.Reader) (*models.IngestResult, error) {
	f.uploads++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeIngestor) DownloadFromURL(ctx context.Context, url string) (*models.IngestResult, error) {
	f.uploads++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeTranscriber struct {
	transcript *models.Transcript
	err        error
	calls      int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, path, language string) (*models.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.transcript, nil
}

type fakeAnalyzer struct {
	result *models.AnalysisResult
	err    error
	calls  int
	input  string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, formattedTranscript string) (*models.AnalysisResult, error) {
	f.calls++
	f.input = formattedTranscript
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func happyDeps() (*fakeIngestor, *fakeTranscriber, *fakeAnalyzer) {
	ingestor := &fakeIngestor{result: &models.IngestResult{Path: "uploads/talk.mp4", Filename: "talk.mp4"}}
	transcriber := &fakeTranscriber{transcript: &models.Transcript{
		Segments: []models.TranscriptSegment{
			{ID: 0, Start: 0, End: 4.5, Text: "Welcome to this tutorial about building pipelines in Go."},
		},
		FullText: "Welcome to this tutorial about building pipelines in Go.",
		Language: "en",
	}}
	analyzer := &fakeAnalyzer{result: &models.AnalysisResult{
		Clips:           []models.ScoredClipCandidate{{StartTime: 0, EndTime: 30, ViralScore: 88, Summary: "intro"}},
		TotalClips:      1,
		AnalysisSummary: "one candidate",
	}}
	return ingestor, transcriber, analyzer
}

func newProcessing(i Ingestor, t Transcriber, a Analyzer) *ProcessingWorkflow {
	return NewProcessing(Config{Ingestor: i, Transcriber: t, Analyzer: a})
}

func TestProcessingHappyPath(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1024, strings.NewReader("bytes")))
	require.NoError(t, w.Run(context.Background()))

	state := w.State()
	assert.Equal(t, models.StepComplete, state.CurrentStep)
	assert.Equal(t, "uploads/talk.mp4", state.UploadedPath)
	require.NotNil(t, state.Transcript)
	require.NotNil(t, state.Analysis)
	assert.Empty(t, state.Error)
	assert.Contains(t, analyzer.input, "[0.0s - 4.5s]")
}

func TestProcessingURLSource(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, models.StepComplete, w.State().CurrentStep)
}

func TestValidationFailureDoesNotChangeState(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	w := newProcessing(ingestor, transcriber, analyzer)

	var vErr *ValidationError

	err := w.SubmitSourceFile("notes.txt", "text/plain", 1024, strings.NewReader("x"))
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "file", vErr.Field)

	err = w.SubmitSourceFile("big.mp4", "video/mp4", MaxUploadBytes+1, strings.NewReader("x"))
	require.ErrorAs(t, err, &vErr)

	err = w.SubmitSourceURL("https://vimeo.com/12345")
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "url", vErr.Field)

	state := w.State()
	assert.Equal(t, models.StepIdle, state.CurrentStep)
	assert.Zero(t, ingestor.uploads)
}

func TestTranscriptionFailureHaltsPipeline(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	transcriber.err = errors.New("whisper unavailable")
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1024, strings.NewReader("x")))
	err := w.Run(context.Background())
	require.Error(t, err)

	state := w.State()
	assert.Equal(t, models.StepError, state.CurrentStep)
	assert.Contains(t, state.Error, "whisper unavailable")
	assert.Zero(t, analyzer.calls, "analysis must never run after a transcription failure")
}

func TestUploadFailure(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	ingestor.err = errors.New("disk full")
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1024, strings.NewReader("x")))
	require.Error(t, w.Run(context.Background()))

	state := w.State()
	assert.Equal(t, models.StepError, state.CurrentStep)
	assert.Zero(t, transcriber.calls)
	assert.Zero(t, analyzer.calls)
}

func TestErrorStateIsCoherent(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	analyzer.err = errors.New("model overloaded")
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1024, strings.NewReader("x")))
	require.Error(t, w.Run(context.Background()))

	state := w.State()
	assert.Equal(t, models.StepError, state.CurrentStep)
	assert.NotEmpty(t, state.Error)
}

func TestResetFromAnyState(t *testing.T) {
	states := []func(w *ProcessingWorkflow){
		func(w *ProcessingWorkflow) {}, // idle
		func(w *ProcessingWorkflow) { // complete
			w.SubmitSourceFile("talk.mp4", "video/mp4", 1, strings.NewReader("x"))
			w.Run(context.Background())
		},
	}

	for _, prepare := range states {
		ingestor, transcriber, analyzer := happyDeps()
		w := newProcessing(ingestor, transcriber, analyzer)
		prepare(w)

		w.Reset()
		state := w.State()
		assert.Equal(t, models.StepIdle, state.CurrentStep)
		assert.Nil(t, state.Transcript)
		assert.Nil(t, state.Analysis)
		assert.Empty(t, state.UploadedPath)
		assert.Empty(t, state.Error)
	}
}

func TestResetAfterFailureAllowsResubmission(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	transcriber.err = errors.New("transient")
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1, strings.NewReader("x")))
	require.Error(t, w.Run(context.Background()))

	w.Reset()
	transcriber.err = nil

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1, strings.NewReader("x")))
	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, models.StepComplete, w.State().CurrentStep)
}

func TestRunWithoutSource(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	w := newProcessing(ingestor, transcriber, analyzer)

	var vErr *ValidationError
	err := w.Run(context.Background())
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, models.StepIdle, w.State().CurrentStep)
}

func TestRunTwiceRejected(t *testing.T) {
	ingestor, transcriber, analyzer := happyDeps()
	w := newProcessing(ingestor, transcriber, analyzer)

	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1, strings.NewReader("x")))
	require.NoError(t, w.Run(context.Background()))
	assert.Error(t, w.Run(context.Background()))
}

type stalledTranscriber struct{}

func (s *stalledTranscriber) Transcribe(ctx context.Context, path, language string) (*models.Transcript, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestStageTimeoutFailsStalledStage(t *testing.T) {
	ingestor, _, analyzer := happyDeps()
	w := NewProcessing(Config{
		Ingestor:     ingestor,
		Transcriber:  &stalledTranscriber{},
		Analyzer:     analyzer,
		StageTimeout: 20 * time.Millisecond,
	})

	require.NoError(t, w.SubmitSourceURL("https://www.youtube.com/watch?v=dQw4w9WgXcQ"))

	err := w.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	state := w.State()
	assert.Equal(t, models.StepError, state.CurrentStep)
	assert.NotEmpty(t, state.Error)
	assert.Zero(t, analyzer.calls, "later stages must not run after a timeout")
}
