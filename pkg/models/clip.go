package models

// ScoredClipCandidate is one sub-range of the source video proposed by
// content analysis. Read-only input to clip selection.
type ScoredClipCandidate struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	ViralScore float64 `json:"viral_score"`
	Summary    string  `json:"summary"`
	Hook       string  `json:"hook"`
	Conclusion string  `json:"conclusion"`
}

// AnalysisResult is the content-analysis response for a transcript.
type AnalysisResult struct {
	Clips           []ScoredClipCandidate `json:"clips"`
	TotalClips      int                   `json:"total_clips"`
	AnalysisSummary string                `json:"analysis_summary"`
}

// GeneratedClip is the mutable per-item unit of the batch pipeline. Entries
// are created in bulk as loading placeholders and each field is populated
// as its stage completes.
type GeneratedClip struct {
	Index            int                 `json:"index"`
	Summary          string              `json:"summary"`
	ViralScore       float64             `json:"viral_score"`
	StartTime        float64             `json:"start_time"`
	EndTime          float64             `json:"end_time"`
	Duration         float64             `json:"duration"`
	VideoURL         string              `json:"video_url,omitempty"`
	ClipPath         string              `json:"clip_path,omitempty"`
	RenderedVideoURL string              `json:"rendered_video_url,omitempty"`
	Subtitles        []TranscriptSegment `json:"subtitles,omitempty"`
	Template         string              `json:"template"`
	Language         string              `json:"language"`
	AspectRatio      string              `json:"aspect_ratio"`
	IsLoading        bool                `json:"is_loading"`
	IsRendering      bool                `json:"is_rendering"`
	Error            string              `json:"error,omitempty"`
}

// CropResult is returned by the processing engine's render-clip endpoint.
type CropResult struct {
	OutputPath string  `json:"output_path"`
	OutputURL  string  `json:"output_url"`
	Duration   float64 `json:"duration"`
	FileSize   int64   `json:"file_size"`
}

// Caption template names. Templates are named visual styles applied during
// rendering; the pipeline only carries the name.
const (
	TemplateHighImpact = "high-impact"
	TemplateMinimal    = "minimal"
	TemplateKaraoke    = "karaoke"
)

// CropMode values accepted by the processing engine.
const (
	CropModeDynamic = "dynamic"
	CropModeStatic  = "static"
)

// Aspect ratio presets accepted by the processing engine.
const (
	AspectRatioVertical = "9:16"
	AspectRatioSquare   = "1:1"
	AspectRatioPortrait = "4:5"
	AspectRatioWide     = "16:9"
)

// IsValidTemplate reports whether name is a known caption template.
func IsValidTemplate(name string) bool {
	switch name {
	case TemplateHighImpact, TemplateMinimal, TemplateKaraoke:
		return true
	}
	return false
}

// IsValidAspectRatio reports whether ratio is an allowed preset.
func IsValidAspectRatio(ratio string) bool {
	switch ratio {
	case AspectRatioVertical, AspectRatioSquare, AspectRatioPortrait, AspectRatioWide:
		return true
	}
	return false
}

// IsValidCropMode reports whether mode is an allowed crop mode.
func IsValidCropMode(mode string) bool {
	return mode == CropModeDynamic || mode == CropModeStatic
}
