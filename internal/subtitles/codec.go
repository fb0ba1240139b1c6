package subtitles

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"clipforge/pkg/models"
)

// Cue is one exported subtitle block. Times are milliseconds; callers
// working in seconds convert via CuesFromSegments before exporting.
type Cue struct {
	StartMS int64
	EndMS   int64
	Text    string
}

// vttHeader is the literal first line of a WebVTT file.
const vttHeader = "WEBVTT"

// CuesFromSegments converts transcript segments (seconds) to export cues
// (milliseconds), rounding to the nearest millisecond.
func CuesFromSegments(segments []models.TranscriptSegment) []Cue {
	cues := make([]Cue, 0, len(segments))
	for _, seg := range segments {
		cues = append(cues, Cue{
			StartMS: int64(math.Round(seg.Start * 1000)),
			EndMS:   int64(math.Round(seg.End * 1000)),
			Text:    seg.Text,
		})
	}
	return cues
}

// SegmentsFromCues converts export cues back to transcript segments in
// seconds, assigning sequential IDs.
func SegmentsFromCues(cues []Cue) []models.TranscriptSegment {
	segments := make([]models.TranscriptSegment, 0, len(cues))
	for i, cue := range cues {
		segments = append(segments, models.TranscriptSegment{
			ID:    i,
			Start: float64(cue.StartMS) / 1000,
			End:   float64(cue.EndMS) / 1000,
			Text:  cue.Text,
		})
	}
	return segments
}

// FormatSRT serializes cues as SubRip text: 1-based sequential indices,
// HH:MM:SS,mmm timestamps, blocks separated by a blank line.
func FormatSRT(cues []Cue) string {
	blocks := make([]string, 0, len(cues))
	for i, cue := range cues {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s",
			i+1, formatTimestamp(cue.StartMS, ','), formatTimestamp(cue.EndMS, ','), cue.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// FormatVTT serializes cues as WebVTT: the WEBVTT header, a blank line, then
// the same block structure as SRT with dot millisecond separators.
func FormatVTT(cues []Cue) string {
	blocks := make([]string, 0, len(cues)+1)
	blocks = append(blocks, vttHeader)
	for i, cue := range cues {
		blocks = append(blocks, fmt.Sprintf("%d\n%s --> %s\n%s",
			i+1, formatTimestamp(cue.StartMS, '.'), formatTimestamp(cue.EndMS, '.'), cue.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// ParseSRT parses SubRip text produced by FormatSRT (or any standard SRT
// with sequential blocks).
func ParseSRT(s string) ([]Cue, error) {
	return parseBlocks(s, ',', false)
}

// ParseVTT parses WebVTT text. The WEBVTT header line is required.
func ParseVTT(s string) ([]Cue, error) {
	trimmed := strings.TrimLeft(s, "\ufeff\n\r ")
	if !strings.HasPrefix(trimmed, vttHeader) {
		return nil, fmt.Errorf("missing %s header", vttHeader)
	}
	trimmed = strings.TrimPrefix(trimmed, vttHeader)
	return parseBlocks(trimmed, '.', true)
}

func parseBlocks(s string, msSep byte, indexOptional bool) ([]Cue, error) {
	s = strings.ReplaceAll(s, "\r\n", "\n")

	var cues []Cue
	for _, block := range strings.Split(s, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		timingLine := lines[0]
		textStart := 1

		// A leading numeric index line is standard in SRT and optional in VTT.
		if !strings.Contains(timingLine, "-->") {
			if len(lines) < 2 {
				return nil, fmt.Errorf("block %q has no timing line", block)
			}
			timingLine = lines[1]
			textStart = 2
		} else if !indexOptional {
			return nil, fmt.Errorf("block %q is missing its index line", block)
		}

		start, end, err := parseTimingLine(timingLine, msSep)
		if err != nil {
			return nil, err
		}

		cues = append(cues, Cue{
			StartMS: start,
			EndMS:   end,
			Text:    strings.Join(lines[textStart:], "\n"),
		})
	}

	return cues, nil
}

func parseTimingLine(line string, msSep byte) (int64, int64, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timing line %q", line)
	}

	start, err := parseTimestamp(strings.TrimSpace(parts[0]), msSep)
	if err != nil {
		return 0, 0, err
	}
	end, err := parseTimestamp(strings.TrimSpace(parts[1]), msSep)
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// formatTimestamp renders ms as HH:MM:SS<sep>mmm.
func formatTimestamp(ms int64, sep byte) string {
	if ms < 0 {
		ms = 0
	}
	hours := ms / 3_600_000
	minutes := (ms % 3_600_000) / 60_000
	seconds := (ms % 60_000) / 1000
	millis := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", hours, minutes, seconds, sep, millis)
}

func parseTimestamp(s string, sep byte) (int64, error) {
	secIdx := strings.LastIndexByte(s, sep)
	if secIdx < 0 {
		return 0, fmt.Errorf("invalid timestamp %q: missing %q millisecond separator", s, string(sep))
	}

	clock := strings.Split(s[:secIdx], ":")
	if len(clock) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q: want HH:MM:SS", s)
	}

	hours, err := parseField(s, clock[0], math.MaxInt64)
	if err != nil {
		return 0, err
	}
	minutes, err := parseField(s, clock[1], 59)
	if err != nil {
		return 0, err
	}
	seconds, err := parseField(s, clock[2], 59)
	if err != nil {
		return 0, err
	}
	millis, err := parseField(s, s[secIdx+1:], 999)
	if err != nil {
		return 0, err
	}

	return hours*3_600_000 + minutes*60_000 + seconds*1000 + millis, nil
}

func parseField(ts, field string, max int64) (int64, error) {
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	if n < 0 || n > max {
		return 0, fmt.Errorf("invalid timestamp %q: field %s out of range", ts, field)
	}
	return n, nil
}
