// Package clips turns a completed analysis into a bounded batch of cropped,
// captionable clips. The batch is intentionally sequential: the crop service
// is CPU-bound per request and sees at most one in-flight call per batch.
package clips

import (
	"context"
	"sort"
	"time"

	"clipforge/internal/logging"
	"clipforge/internal/metrics"
	"clipforge/pkg/models"
)

// BatchSize is the fixed number of candidates promoted to actual clips.
const BatchSize = 5

// Cropper extracts and re-frames a sub-range of a source video.
type Cropper interface {
	Crop(ctx context.Context, path string, start, end float64, cropMode, aspectRatio string) (*models.CropResult, error)
}

// Options selects the crop and caption parameters applied to every clip in
// a batch.
type Options struct {
	CropMode    string
	AspectRatio string
	Template    string
	Language    string
}

func (o *Options) applyDefaults() {
	if o.CropMode == "" {
		o.CropMode = models.CropModeDynamic
	}
	if o.AspectRatio == "" {
		o.AspectRatio = models.AspectRatioVertical
	}
	if o.Template == "" {
		o.Template = models.TemplateHighImpact
	}
}

// Generator materializes scored candidates into GeneratedClips.
type Generator struct {
	cropper Cropper
	log     *logging.Logger
}

// NewGenerator creates a batch generator using the given crop collaborator.
func NewGenerator(cropper Cropper, log *logging.Logger) *Generator {
	if log == nil {
		log = logging.Nop()
	}
	return &Generator{cropper: cropper, log: log}
}

// SelectTop returns the n highest-scoring candidates. The sort is stable so
// ties keep the order the analysis collaborator returned them in.
func SelectTop(candidates []models.ScoredClipCandidate, n int) []models.ScoredClipCandidate {
	selected := append([]models.ScoredClipCandidate(nil), candidates...)
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].ViralScore > selected[j].ViralScore
	})
	if len(selected) > n {
		selected = selected[:n]
	}
	return selected
}

// SliceTranscript filters segments to those fully inside [start, end] and
// re-bases them (and their word timings) to clip-relative time.
func SliceTranscript(segments []models.TranscriptSegment, start, end float64) []models.TranscriptSegment {
	var sliced []models.TranscriptSegment
	for _, seg := range segments {
		if seg.Start < start || seg.End > end {
			continue
		}

		rebased := seg
		rebased.Start = seg.Start - start
		rebased.End = seg.End - start
		if len(seg.Words) > 0 {
			rebased.Words = make([]models.WordTiming, len(seg.Words))
			for i, w := range seg.Words {
				rebased.Words[i] = models.WordTiming{Word: w.Word, Start: w.Start - start, End: w.End - start}
			}
		}
		sliced = append(sliced, rebased)
	}
	return sliced
}

// Generate selects the top candidates and drives each through a crop and a
// subtitle slice, one at a time. All entries are created as loading
// placeholders before any network call. A failing item is marked with its
// own error and never aborts its siblings; onProgress fires after every
// item regardless of outcome.
func (g *Generator) Generate(
	ctx context.Context,
	sourcePath string,
	transcript *models.Transcript,
	analysis *models.AnalysisResult,
	opts Options,
	onProgress func(current, total int),
) *Batch {
	opts.applyDefaults()

	selected := SelectTop(analysis.Clips, BatchSize)

	language := opts.Language
	if language == "" && transcript != nil {
		language = transcript.Language
	}

	entries := make([]models.GeneratedClip, len(selected))
	for i, cand := range selected {
		entries[i] = models.GeneratedClip{
			Index:       i,
			Summary:     cand.Summary,
			ViralScore:  cand.ViralScore,
			StartTime:   cand.StartTime,
			EndTime:     cand.EndTime,
			Duration:    cand.EndTime - cand.StartTime,
			Template:    opts.Template,
			Language:    language,
			AspectRatio: opts.AspectRatio,
			IsLoading:   true,
		}
	}
	batch := &Batch{entries: entries}

	for i := range selected {
		g.generateOne(ctx, batch, i, sourcePath, transcript, opts)
		if onProgress != nil {
			onProgress(i+1, len(selected))
		}
	}

	return batch
}

func (g *Generator) generateOne(ctx context.Context, batch *Batch, i int, sourcePath string, transcript *models.Transcript, opts Options) {
	entry, _ := batch.Get(i)
	log := g.log.WithClipIndex(i)

	start := time.Now()
	result, err := g.cropper.Crop(ctx, sourcePath, entry.StartTime, entry.EndTime, opts.CropMode, opts.AspectRatio)
	metrics.ClipCropDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.ErrorWithErr("clip crop failed", err)
		metrics.RecordClipOutcome("error")
		batch.finishWithError(i, err.Error())
		return
	}

	subtitles := SliceTranscript(transcript.Segments, entry.StartTime, entry.EndTime)
	batch.finishWithResult(i, result, subtitles)
	metrics.RecordClipOutcome("success")
	log.Infof("clip ready: %s (%.1fs)", result.OutputURL, result.Duration)
}
