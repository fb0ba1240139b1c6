// Package subtitles holds the pure caption-timing logic: the active
// segment/word resolver, chunk selection for word-group caption styles, and
// the SRT/WebVTT codec.
package subtitles

import "clipforge/pkg/models"

// Resolution is the result of resolving a playback time against a segment
// list. When IsActive is false both Segment and Word are nil.
type Resolution struct {
	Segment  *models.TranscriptSegment
	Word     *models.WordTiming
	IsActive bool
}

// Resolve finds the active segment and, when word timings exist, the active
// word at time t (seconds). It expects segments sorted by start and
// non-overlapping; on input violating that, the first segment with
// start <= t < end wins. Resolve keeps no cursor state so it stays correct
// under seeking, at the cost of a scan per call.
func Resolve(segments []models.TranscriptSegment, t float64) Resolution {
	for i := range segments {
		seg := &segments[i]
		if t < seg.Start || t >= seg.End {
			continue
		}

		res := Resolution{Segment: seg, IsActive: true}
		for j := range seg.Words {
			w := &seg.Words[j]
			if t >= w.Start && t < w.End {
				res.Word = w
				break
			}
		}
		// No word match means t fell in an inter-word gap or the segment
		// carries no word timings; the full segment text is the display unit.
		return res
	}

	return Resolution{}
}
