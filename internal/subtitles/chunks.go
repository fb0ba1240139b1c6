package subtitles

import (
	"math"
	"strings"

	"clipforge/pkg/models"
)

// DefaultWordsPerChunk is the word-group size used by the high-impact
// caption template.
const DefaultWordsPerChunk = 4

// fadeFraction is the share of a chunk slot spent fading in at the start and
// fading out at the end.
const fadeFraction = 0.15

// Chunks splits a segment's text into groups of at most wordsPerChunk words.
// An empty text yields no chunks.
func Chunks(text string, wordsPerChunk int) []string {
	if wordsPerChunk <= 0 {
		wordsPerChunk = DefaultWordsPerChunk
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+wordsPerChunk-1)/wordsPerChunk)
	for i := 0; i < len(words); i += wordsPerChunk {
		end := i + wordsPerChunk
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	return chunks
}

// ActiveChunk computes which word-group of seg is current at time t and its
// fade envelope. Each chunk owns an equal-duration slot of the segment
// (segment duration / chunk count); the current index is
// floor(elapsed/slot) clamped to the last chunk. Opacity ramps 0->1 over the
// leading fadeFraction of the slot and 1->0 over the trailing fadeFraction,
// independently of neighbouring chunks.
//
// The returned index is -1 when t is outside the segment or the segment has
// no words.
func ActiveChunk(seg models.TranscriptSegment, t float64, wordsPerChunk int) (index int, text string, opacity float64) {
	chunks := Chunks(seg.Text, wordsPerChunk)
	if len(chunks) == 0 || t < seg.Start || t >= seg.End || seg.Duration() <= 0 {
		return -1, "", 0
	}

	slot := seg.Duration() / float64(len(chunks))
	elapsed := t - seg.Start

	index = int(math.Floor(elapsed / slot))
	if index >= len(chunks) {
		index = len(chunks) - 1
	}

	local := elapsed - float64(index)*slot
	fade := slot * fadeFraction

	opacity = 1
	if fade > 0 {
		if local < fade {
			opacity = local / fade
		} else if remaining := slot - local; remaining < fade {
			opacity = remaining / fade
		}
	}

	return index, chunks[index], opacity
}
