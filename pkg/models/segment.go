package models

// TranscriptSegment is a contiguous span of transcript text. Times are
// seconds from the start of the video the segment was transcribed from.
// Segments are ordered by start and non-overlapping as produced by the
// transcription service; nothing here re-validates that.
type TranscriptSegment struct {
	ID    int          `json:"id"`
	Start float64      `json:"start"`
	End   float64      `json:"end"`
	Text  string       `json:"text"`
	Words []WordTiming `json:"words,omitempty"`
}

// WordTiming is a word-level timestamp nested under a segment. The
// transcription service guarantees segment.Start <= Start <= End <= segment.End.
type WordTiming struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the segment length in seconds.
func (s TranscriptSegment) Duration() float64 {
	return s.End - s.Start
}

// Transcript is the full transcription result for one video.
type Transcript struct {
	Segments     []TranscriptSegment `json:"segments"`
	FullText     string              `json:"full_text"`
	SegmentCount int                 `json:"segment_count"`
	Language     string              `json:"language"`
}

// IngestResult is returned by the processing engine for both file uploads
// and URL downloads.
type IngestResult struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}
