package models

// WorkflowStep identifies the current stage of a workflow.
type WorkflowStep string

// Processing workflow steps. The subtitle-generation workflow shares the
// ingest steps and adds editing/rendering.
const (
	StepIdle         WorkflowStep = "idle"
	StepUploading    WorkflowStep = "uploading"
	StepTranscribing WorkflowStep = "transcribing"
	StepAnalyzing    WorkflowStep = "analyzing"
	StepEditing      WorkflowStep = "editing"
	StepRendering    WorkflowStep = "rendering"
	StepComplete     WorkflowStep = "complete"
	StepError        WorkflowStep = "error"
)

// WorkflowState is the observable state of one workflow session. Exactly one
// instance exists per active session and it is replaced wholesale on reset.
// Error is non-empty if and only if CurrentStep is StepError.
type WorkflowState struct {
	CurrentStep      WorkflowStep    `json:"current_step"`
	Progress         string          `json:"progress"`
	UploadedPath     string          `json:"uploaded_path,omitempty"`
	UploadedFilename string          `json:"uploaded_filename,omitempty"`
	Transcript       *Transcript     `json:"transcript,omitempty"`
	Analysis         *AnalysisResult `json:"analysis,omitempty"`
	RenderedVideoURL string          `json:"rendered_video_url,omitempty"`
	Error            string          `json:"error,omitempty"`
}

// ProcessRequest is the queued form of a processing run, consumed by the
// worker binary.
type ProcessRequest struct {
	SessionID   string `json:"session_id"`
	SourceURL   string `json:"source_url,omitempty"`
	SourcePath  string `json:"source_path,omitempty"`
	Language    string `json:"language,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}
