package workflow

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/metrics"
	"clipforge/pkg/models"
)

// Renderer submits a caption render and waits for its terminal result.
type Renderer interface {
	Render(ctx context.Context, spec models.RenderSpec, onProgress func(float64)) (string, error)
}

// SubtitleWorkflow is the direct pipeline: a whole video goes straight to
// transcript editing and a single caption render, bypassing scoring.
// States: idle -> uploading -> transcribing -> editing -> rendering ->
// complete, with error reachable from any non-idle state.
type SubtitleWorkflow struct {
	ingestor     Ingestor
	transcriber  Transcriber
	renderer     Renderer
	log          *logging.Logger
	stageTimeout time.Duration
	language     string

	mu             sync.Mutex
	source         *pendingSource
	state          models.WorkflowState
	subtitles      []models.TranscriptSegment
	renderProgress float64
}

// SubtitleConfig carries the collaborator dependencies of a
// SubtitleWorkflow.
type SubtitleConfig struct {
	Ingestor     Ingestor
	Transcriber  Transcriber
	Renderer     Renderer
	Logger       *logging.Logger
	StageTimeout time.Duration
	Language     string
}

// NewSubtitle creates an idle subtitle-generation workflow.
func NewSubtitle(cfg SubtitleConfig) *SubtitleWorkflow {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &SubtitleWorkflow{
		ingestor:     cfg.Ingestor,
		transcriber:  cfg.Transcriber,
		renderer:     cfg.Renderer,
		log:          log,
		stageTimeout: cfg.StageTimeout,
		language:     cfg.Language,
		state:        models.WorkflowState{CurrentStep: models.StepIdle},
	}
}

// SubmitSourceFile registers a validated local file as the source.
func (w *SubtitleWorkflow) SubmitSourceFile(filename, contentType string, size int64, data io.Reader) error {
	if err := ValidateSourceFile(filename, contentType, size); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.CurrentStep != models.StepIdle {
		return fmt.Errorf("cannot submit a source while the workflow is %s", w.state.CurrentStep)
	}
	w.source = &pendingSource{filename: filename, data: data}
	return nil
}

// SubmitSourceURL registers a validated remote URL as the source.
func (w *SubtitleWorkflow) SubmitSourceURL(url string) error {
	if err := ValidateSourceURL(url); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.CurrentStep != models.StepIdle {
		return fmt.Errorf("cannot submit a source while the workflow is %s", w.state.CurrentStep)
	}
	w.source = &pendingSource{url: url}
	return nil
}

// Run advances idle -> uploading -> transcribing -> editing. The workflow
// then waits for subtitle edits and an explicit Render call.
func (w *SubtitleWorkflow) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.state.CurrentStep != models.StepIdle {
		step := w.state.CurrentStep
		w.mu.Unlock()
		return fmt.Errorf("workflow already ran: current step is %s", step)
	}
	source := w.source
	w.mu.Unlock()

	if source == nil {
		return &ValidationError{Field: "source", Message: "no source submitted"}
	}

	w.setStep(models.StepUploading, "Uploading source video...")
	var ingested *models.IngestResult
	err := w.runStage(ctx, "uploading", func(ctx context.Context) error {
		var err error
		if source.url != "" {
			ingested, err = w.ingestor.DownloadFromURL(ctx, source.url)
		} else {
			ingested, err = w.ingestor.Upload(ctx, source.filename, source.data)
		}
		return err
	})
	if err != nil {
		return w.fail("uploading", err)
	}
	w.mu.Lock()
	w.state.UploadedPath = ingested.Path
	w.state.UploadedFilename = ingested.Filename
	w.mu.Unlock()

	w.setStep(models.StepTranscribing, "Transcribing audio...")
	var transcript *models.Transcript
	err = w.runStage(ctx, "transcribing", func(ctx context.Context) error {
		var err error
		transcript, err = w.transcriber.Transcribe(ctx, ingested.Path, w.language)
		return err
	})
	if err != nil {
		return w.fail("transcribing", err)
	}

	w.mu.Lock()
	w.state.Transcript = transcript
	w.subtitles = append([]models.TranscriptSegment(nil), transcript.Segments...)
	w.state.CurrentStep = models.StepEditing
	w.state.Progress = fmt.Sprintf("Transcript ready: %d segments to edit", len(transcript.Segments))
	w.mu.Unlock()

	return nil
}

// Subtitles returns a copy of the editable subtitle list.
func (w *SubtitleWorkflow) Subtitles() []models.TranscriptSegment {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.TranscriptSegment(nil), w.subtitles...)
}

// UpdateSubtitles replaces the editable subtitle list. Only valid while the
// workflow is in the editing state.
func (w *SubtitleWorkflow) UpdateSubtitles(segments []models.TranscriptSegment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.CurrentStep != models.StepEditing {
		return fmt.Errorf("subtitles can only be edited while the workflow is editing, not %s", w.state.CurrentStep)
	}
	w.subtitles = append([]models.TranscriptSegment(nil), segments...)
	return nil
}

// Render submits the edited subtitles for a single caption render and waits
// for it. The render uses a snapshot of the subtitles at submission time.
func (w *SubtitleWorkflow) Render(ctx context.Context, videoURL, template, aspectRatio string) error {
	if !models.IsValidTemplate(template) {
		return &ValidationError{Field: "template", Message: fmt.Sprintf("unknown template %q", template)}
	}
	if !models.IsValidAspectRatio(aspectRatio) {
		return &ValidationError{Field: "aspect_ratio", Message: fmt.Sprintf("unknown aspect ratio %q", aspectRatio)}
	}

	w.mu.Lock()
	if w.state.CurrentStep != models.StepEditing {
		step := w.state.CurrentStep
		w.mu.Unlock()
		return fmt.Errorf("render requires the editing state, not %s", step)
	}
	spec := models.RenderSpec{
		VideoURL:    videoURL,
		Subtitles:   append([]models.TranscriptSegment(nil), w.subtitles...),
		Template:    template,
		Language:    w.transcriptLanguageLocked(),
		AspectRatio: aspectRatio,
	}
	w.mu.Unlock()

	w.setStep(models.StepRendering, "Rendering captions...")
	var finalURL string
	err := w.runStage(ctx, "rendering", func(ctx context.Context) error {
		var err error
		finalURL, err = w.renderer.Render(ctx, spec, w.setRenderProgress)
		return err
	})
	if err != nil {
		return w.fail("rendering", err)
	}

	w.mu.Lock()
	w.state.RenderedVideoURL = finalURL
	w.state.CurrentStep = models.StepComplete
	w.state.Progress = "Render complete"
	w.mu.Unlock()

	metrics.WorkflowsCompletedTotal.Inc()
	return nil
}

// RenderProgress returns the last progress fraction reported by an
// in-flight render.
func (w *SubtitleWorkflow) RenderProgress() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.renderProgress
}

// Reset unconditionally returns the workflow to idle.
func (w *SubtitleWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source = nil
	w.subtitles = nil
	w.renderProgress = 0
	w.state = models.WorkflowState{CurrentStep: models.StepIdle}
}

// State returns a copy of the current workflow state.
func (w *SubtitleWorkflow) State() models.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *SubtitleWorkflow) transcriptLanguageLocked() string {
	if w.state.Transcript != nil {
		return w.state.Transcript.Language
	}
	return w.language
}

func (w *SubtitleWorkflow) setRenderProgress(p float64) {
	w.mu.Lock()
	w.renderProgress = p
	w.mu.Unlock()
}

func (w *SubtitleWorkflow) setStep(step models.WorkflowStep, progress string) {
	w.mu.Lock()
	w.state.CurrentStep = step
	w.state.Progress = progress
	w.mu.Unlock()
	w.log.WithField("step", string(step)).Info(progress)
}

func (w *SubtitleWorkflow) fail(stage string, err error) error {
	w.mu.Lock()
	w.state.CurrentStep = models.StepError
	w.state.Error = err.Error()
	w.state.Progress = "Processing failed"
	w.mu.Unlock()

	metrics.RecordStageFailure(stage)
	w.log.WithField("stage", stage).ErrorWithErr("workflow stage failed", err)
	return fmt.Errorf("%s failed: %w", stage, err)
}

func (w *SubtitleWorkflow) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	// Rendering carries its own 30-minute poll budget; stacking the stage
	// timeout on top of it would cut long renders short.
	if name == "rendering" {
		start := time.Now()
		err := fn(ctx)
		metrics.RecordStage(name, time.Since(start).Seconds())
		return err
	}

	if w.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	metrics.RecordStage(name, time.Since(start).Seconds())
	return err
}
