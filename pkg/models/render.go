package models

// RenderJob is the observed state of an asynchronous render on the external
// compositing service. It is created by submission and mutated only by the
// renderer; the client observes it via polling and never writes it back.
type RenderJob struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
	VideoURL string  `json:"video_url,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// RenderJob status values reported by the renderer.
const (
	RenderStatusQueued     = "queued"
	RenderStatusInProgress = "in-progress"
	RenderStatusCompleted  = "completed"
	RenderStatusFailed     = "failed"
)

// RenderSpec is everything the renderer needs to burn captions into a clip.
// Subtitles are a snapshot taken at submission time; later edits to the clip
// do not affect an in-flight render.
type RenderSpec struct {
	VideoURL    string              `json:"video_url"`
	Subtitles   []TranscriptSegment `json:"subtitles"`
	Template    string              `json:"template"`
	Language    string              `json:"language"`
	AspectRatio string              `json:"aspect_ratio"`
}
