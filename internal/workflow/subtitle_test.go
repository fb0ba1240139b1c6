package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/pkg/models"
)

type fakeRenderer struct {
	url   string
	err   error
	calls int
	spec  models.RenderSpec
}

func (f *fakeRenderer) Render(ctx context.Context, spec models.RenderSpec, onProgress func(float64)) (string, error) {
	f.calls++
	f.spec = spec
	if onProgress != nil {
		onProgress(0.5)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func newSubtitleWorkflow(renderer *fakeRenderer) (*SubtitleWorkflow, *fakeIngestor, *fakeTranscriber) {
	ingestor, transcriber, _ := happyDeps()
	w := NewSubtitle(SubtitleConfig{
		Ingestor:    ingestor,
		Transcriber: transcriber,
		Renderer:    renderer,
	})
	return w, ingestor, transcriber
}

func runToEditing(t *testing.T, w *SubtitleWorkflow) {
	t.Helper()
	require.NoError(t, w.SubmitSourceFile("talk.mp4", "video/mp4", 1024, strings.NewReader("x")))
	require.NoError(t, w.Run(context.Background()))
	require.Equal(t, models.StepEditing, w.State().CurrentStep)
}

func TestSubtitleRunStopsAtEditing(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)

	runToEditing(t, w)

	subs := w.Subtitles()
	require.Len(t, subs, 1)
	assert.Equal(t, "Welcome to this tutorial about building pipelines in Go.", subs[0].Text)
	assert.Zero(t, renderer.calls)
}

func TestSubtitleEditThenRender(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)
	runToEditing(t, w)

	edited := []models.TranscriptSegment{{ID: 0, Start: 0, End: 4.5, Text: "Edited text"}}
	require.NoError(t, w.UpdateSubtitles(edited))

	require.NoError(t, w.Render(context.Background(), "http://origin/talk.mp4", models.TemplateHighImpact, models.AspectRatioVertical))

	state := w.State()
	assert.Equal(t, models.StepComplete, state.CurrentStep)
	assert.Equal(t, "http://cdn/final.mp4", state.RenderedVideoURL)

	// The render received the edited snapshot, with language from the transcript.
	require.Len(t, renderer.spec.Subtitles, 1)
	assert.Equal(t, "Edited text", renderer.spec.Subtitles[0].Text)
	assert.Equal(t, "en", renderer.spec.Language)
	assert.Equal(t, 0.5, w.RenderProgress())
}

func TestSubtitleRenderSnapshotIsolatedFromLaterEdits(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)
	runToEditing(t, w)

	require.NoError(t, w.Render(context.Background(), "http://origin/talk.mp4", models.TemplateMinimal, models.AspectRatioSquare))

	snapshot := renderer.spec.Subtitles
	require.NotEmpty(t, snapshot)
	snapshot[0].Text = "mutated by test"

	assert.NotEqual(t, "mutated by test", w.Subtitles()[0].Text)
}

func TestSubtitleRenderFailure(t *testing.T) {
	renderer := &fakeRenderer{err: errors.New("renderer crashed")}
	w, _, _ := newSubtitleWorkflow(renderer)
	runToEditing(t, w)

	err := w.Render(context.Background(), "http://origin/talk.mp4", models.TemplateHighImpact, models.AspectRatioVertical)
	require.Error(t, err)

	state := w.State()
	assert.Equal(t, models.StepError, state.CurrentStep)
	assert.Contains(t, state.Error, "renderer crashed")
}

func TestSubtitleRenderRequiresEditingState(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)

	err := w.Render(context.Background(), "http://origin/talk.mp4", models.TemplateHighImpact, models.AspectRatioVertical)
	assert.Error(t, err)
	assert.Zero(t, renderer.calls)
}

func TestSubtitleRenderValidatesTemplateAndRatio(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)
	runToEditing(t, w)

	var vErr *ValidationError
	err := w.Render(context.Background(), "http://origin/talk.mp4", "sparkly", models.AspectRatioVertical)
	require.ErrorAs(t, err, &vErr)

	err = w.Render(context.Background(), "http://origin/talk.mp4", models.TemplateMinimal, "2:3")
	require.ErrorAs(t, err, &vErr)

	// Validation failures leave the workflow in editing.
	assert.Equal(t, models.StepEditing, w.State().CurrentStep)
	assert.Zero(t, renderer.calls)
}

func TestSubtitleEditOutsideEditingRejected(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)

	err := w.UpdateSubtitles([]models.TranscriptSegment{{Text: "x"}})
	assert.Error(t, err)
}

func TestSubtitleResetClearsEverything(t *testing.T) {
	renderer := &fakeRenderer{url: "http://cdn/final.mp4"}
	w, _, _ := newSubtitleWorkflow(renderer)
	runToEditing(t, w)

	w.Reset()
	state := w.State()
	assert.Equal(t, models.StepIdle, state.CurrentStep)
	assert.Nil(t, state.Transcript)
	assert.Empty(t, w.Subtitles())
	assert.Zero(t, w.RenderProgress())
}
