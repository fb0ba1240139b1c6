// Package workflow implements the in-memory pipeline state machines: the
// processing workflow (ingest, transcribe, analyze) and the direct
// subtitle-generation workflow (ingest, transcribe, edit, render). State is
// owned by one session, never persisted, and replaced wholesale on reset.
package workflow

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"clipforge/internal/analysis"
	"clipforge/internal/logging"
	"clipforge/internal/metrics"
	"clipforge/internal/tracing"
	"clipforge/pkg/models"
)

// Ingestor obtains a server-local path for a source video.
type Ingestor interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*models.IngestResult, error)
	DownloadFromURL(ctx context.Context, url string) (*models.IngestResult, error)
}

// Transcriber produces a timed transcript for a server-local video path.
type Transcriber interface {
	Transcribe(ctx context.Context, path, language string) (*models.Transcript, error)
}

// Analyzer scores a formatted transcript for viral clip candidates.
type Analyzer interface {
	Analyze(ctx context.Context, formattedTranscript string) (*models.AnalysisResult, error)
}

// pendingSource is a validated source awaiting Run. Exactly one of url or
// data is set.
type pendingSource struct {
	url      string
	filename string
	data     io.Reader
}

// ProcessingWorkflow drives one video through upload, transcription, and
// content analysis. Transitions are strictly forward: any stage failure
// moves to the error state and the only recovery is Reset.
type ProcessingWorkflow struct {
	ingestor     Ingestor
	transcriber  Transcriber
	analyzer     Analyzer
	log          *logging.Logger
	stageTimeout time.Duration
	language     string

	mu     sync.Mutex
	source *pendingSource
	state  models.WorkflowState
}

// Config carries the collaborator dependencies of a ProcessingWorkflow.
type Config struct {
	Ingestor    Ingestor
	Transcriber Transcriber
	Analyzer    Analyzer
	Logger      *logging.Logger
	// StageTimeout bounds each collaborator call. Zero means no per-stage
	// deadline.
	StageTimeout time.Duration
	// Language is the transcription language hint; empty means auto-detect.
	Language string
}

// NewProcessing creates an idle processing workflow.
func NewProcessing(cfg Config) *ProcessingWorkflow {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &ProcessingWorkflow{
		ingestor:     cfg.Ingestor,
		transcriber:  cfg.Transcriber,
		analyzer:     cfg.Analyzer,
		log:          log,
		stageTimeout: cfg.StageTimeout,
		language:     cfg.Language,
		state:        models.WorkflowState{CurrentStep: models.StepIdle},
	}
}

// SubmitSourceFile validates and registers a local file as the pipeline
// source. On validation failure the state does not change.
func (w *ProcessingWorkflow) SubmitSourceFile(filename, contentType string, size int64, data io.Reader) error {
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

// SubmitSourceURL validates and registers a remote video URL as the
// pipeline source.
func (w *ProcessingWorkflow) SubmitSourceURL(url string) error {
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

// Run advances idle -> uploading -> transcribing -> analyzing -> complete.
// A collaborator failure at any stage moves to error and halts; later
// stages are never attempted. The returned error mirrors the error state.
func (w *ProcessingWorkflow) Run(ctx context.Context) error {
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

	// Upload
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

	// Transcribe
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
	w.mu.Unlock()

	// Analyze
	w.setStep(models.StepAnalyzing, "Analyzing transcript for viral moments...")
	var result *models.AnalysisResult
	err = w.runStage(ctx, "analyzing", func(ctx context.Context) error {
		var err error
		result, err = w.analyzer.Analyze(ctx, analysis.FormatTranscript(transcript))
		return err
	})
	if err != nil {
		return w.fail("analyzing", err)
	}

	w.mu.Lock()
	w.state.Analysis = result
	w.state.CurrentStep = models.StepComplete
	w.state.Progress = fmt.Sprintf("Analysis complete: %d candidate clips", len(result.Clips))
	w.mu.Unlock()

	metrics.WorkflowsCompletedTotal.Inc()
	w.log.Info("processing workflow complete")
	return nil
}

// Reset unconditionally returns the workflow to idle, discarding all
// accumulated payloads and any pending source.
func (w *ProcessingWorkflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.source = nil
	w.state = models.WorkflowState{CurrentStep: models.StepIdle}
}

// State returns a copy of the current workflow state.
func (w *ProcessingWorkflow) State() models.WorkflowState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *ProcessingWorkflow) setStep(step models.WorkflowStep, progress string) {
	w.mu.Lock()
	w.state.CurrentStep = step
	w.state.Progress = progress
	w.mu.Unlock()
	w.log.WithField("step", string(step)).Info(progress)
}

// fail moves to the error state with the failure's message so the
// step/progress/error triple stays coherent.
func (w *ProcessingWorkflow) fail(stage string, err error) error {
	w.mu.Lock()
	w.state.CurrentStep = models.StepError
	w.state.Error = err.Error()
	w.state.Progress = "Processing failed"
	w.mu.Unlock()

	metrics.RecordStageFailure(stage)
	w.log.WithField("stage", stage).ErrorWithErr("workflow stage failed", err)
	return fmt.Errorf("%s failed: %w", stage, err)
}

func (w *ProcessingWorkflow) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	span, ctx := tracing.StartSpan(ctx, "workflow."+name)
	defer span.Finish()

	if w.stageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.stageTimeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	metrics.RecordStage(name, time.Since(start).Seconds())
	if err != nil {
		tracing.LogError(span, err)
	}
	return err
}
