package clips

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/pkg/models"
)

type fakeCropper struct {
	calls   []float64 // start times, in call order
	failAt  map[int]error
	results map[int]*models.CropResult
}

func (f *fakeCropper) Crop(ctx context.Context, path string, start, end float64, cropMode, aspectRatio string) (*models.CropResult, error) {
	call := len(f.calls)
	f.calls = append(f.calls, start)

	if err, ok := f.failAt[call]; ok {
		return nil, err
	}
	if r, ok := f.results[call]; ok {
		return r, nil
	}
	return &models.CropResult{
		OutputPath: fmt.Sprintf("output/clip_%d.mp4", call),
		OutputURL:  fmt.Sprintf("/output/clip_%d.mp4", call),
		Duration:   end - start,
		FileSize:   1024,
	}, nil
}

func candidatesWithScores(scores ...float64) []models.ScoredClipCandidate {
	cands := make([]models.ScoredClipCandidate, len(scores))
	for i, s := range scores {
		cands[i] = models.ScoredClipCandidate{
			StartTime:  float64(i * 60),
			EndTime:    float64(i*60 + 30),
			ViralScore: s,
			Summary:    fmt.Sprintf("candidate %d", i),
		}
	}
	return cands
}

func testTranscript() *models.Transcript {
	return &models.Transcript{
		Segments: []models.TranscriptSegment{
			{ID: 0, Start: 0, End: 10, Text: "inside first clip"},
			{ID: 1, Start: 10, End: 29, Text: "also inside first clip"},
			{ID: 2, Start: 29, End: 31, Text: "straddles first clip end"},
			{ID: 3, Start: 62, End: 88, Text: "inside second clip"},
		},
		Language: "en",
	}
}

func TestSelectTopFiveByScore(t *testing.T) {
	selected := SelectTop(candidatesWithScores(95, 40, 88, 10, 77, 60, 99), 5)

	scores := make([]float64, len(selected))
	for i, c := range selected {
		scores[i] = c.ViralScore
	}
	assert.Equal(t, []float64{99, 95, 88, 77, 60}, scores)
}

func TestSelectTopStableOnTies(t *testing.T) {
	cands := candidatesWithScores(80, 80, 80)
	selected := SelectTop(cands, 2)

	require.Len(t, selected, 2)
	assert.Equal(t, "candidate 0", selected[0].Summary)
	assert.Equal(t, "candidate 1", selected[1].Summary)
}

func TestSelectTopFewerCandidatesThanBatch(t *testing.T) {
	selected := SelectTop(candidatesWithScores(50, 70), 5)
	require.Len(t, selected, 2)
	assert.Equal(t, 70.0, selected[0].ViralScore)
}

func TestSliceTranscriptRebasesFullyContainedSegments(t *testing.T) {
	segments := []models.TranscriptSegment{
		{Start: 5, End: 9, Text: "in", Words: []models.WordTiming{{Word: "in", Start: 5.5, End: 6}}},
		{Start: 9, End: 21, Text: "straddles"},
		{Start: 2, End: 4, Text: "before"},
	}

	sliced := SliceTranscript(segments, 5, 20)
	require.Len(t, sliced, 1)
	assert.Equal(t, 0.0, sliced[0].Start)
	assert.Equal(t, 4.0, sliced[0].End)
	require.Len(t, sliced[0].Words, 1)
	assert.Equal(t, 0.5, sliced[0].Words[0].Start)
}

func TestGenerateHappyPath(t *testing.T) {
	cropper := &fakeCropper{}
	g := NewGenerator(cropper, nil)

	analysis := &models.AnalysisResult{Clips: candidatesWithScores(90, 80)}

	var progress [][2]int
	batch := g.Generate(context.Background(), "uploads/talk.mp4", testTranscript(), analysis, Options{}, func(current, total int) {
		progress = append(progress, [2]int{current, total})
	})

	clips := batch.Clips()
	require.Len(t, clips, 2)
	assert.Equal(t, [][2]int{{1, 2}, {2, 2}}, progress)

	for _, clip := range clips {
		assert.False(t, clip.IsLoading)
		assert.NotEmpty(t, clip.VideoURL)
		assert.Empty(t, clip.Error)
		assert.Equal(t, models.TemplateHighImpact, clip.Template)
		assert.Equal(t, models.AspectRatioVertical, clip.AspectRatio)
		assert.Equal(t, "en", clip.Language)
	}

	// First clip covers [0,30]: segments 0 and 1 fit, segment 2 straddles.
	require.Len(t, clips[0].Subtitles, 2)
	assert.Equal(t, 0.0, clips[0].Subtitles[0].Start)
	assert.Equal(t, "inside first clip", clips[0].Subtitles[0].Text)

	// Second clip covers [60,90]: segment 3 re-based to clip time.
	require.Len(t, clips[1].Subtitles, 1)
	assert.Equal(t, 2.0, clips[1].Subtitles[0].Start)
}

func TestGenerateSequentialCropOrder(t *testing.T) {
	cropper := &fakeCropper{}
	g := NewGenerator(cropper, nil)

	// Scores reversed relative to candidate order: crop calls must follow
	// score order, one at a time.
	analysis := &models.AnalysisResult{Clips: candidatesWithScores(10, 50, 90)}
	g.Generate(context.Background(), "src.mp4", testTranscript(), analysis, Options{}, nil)

	assert.Equal(t, []float64{120, 60, 0}, cropper.calls)
}

func TestGenerateBatchIsolation(t *testing.T) {
	// Item 3 of 5 (index 2) fails; all siblings still reach a terminal state.
	cropper := &fakeCropper{failAt: map[int]error{2: errors.New("crop engine crashed")}}
	g := NewGenerator(cropper, nil)

	analysis := &models.AnalysisResult{Clips: candidatesWithScores(99, 98, 97, 96, 95)}

	var progress []int
	batch := g.Generate(context.Background(), "src.mp4", testTranscript(), analysis, Options{}, func(current, total int) {
		progress = append(progress, current)
	})

	clips := batch.Clips()
	require.Len(t, clips, 5)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, progress)

	for i, clip := range clips {
		assert.False(t, clip.IsLoading, "entry %d must be terminal", i)
		if i == 2 {
			assert.Contains(t, clip.Error, "crop engine crashed")
			assert.Empty(t, clip.VideoURL)
			assert.Empty(t, clip.Subtitles)
		} else {
			assert.Empty(t, clip.Error)
			assert.NotEmpty(t, clip.VideoURL)
		}
	}
}

func TestGenerateEntryNeverHasBothResultAndError(t *testing.T) {
	cropper := &fakeCropper{failAt: map[int]error{0: errors.New("boom")}}
	g := NewGenerator(cropper, nil)

	analysis := &models.AnalysisResult{Clips: candidatesWithScores(90)}
	batch := g.Generate(context.Background(), "src.mp4", testTranscript(), analysis, Options{}, nil)

	clip, err := batch.Get(0)
	require.NoError(t, err)
	assert.NotEmpty(t, clip.Error)
	assert.Empty(t, clip.VideoURL)
	assert.Nil(t, clip.Subtitles)
}

func TestBatchEditsAreLocal(t *testing.T) {
	cropper := &fakeCropper{}
	g := NewGenerator(cropper, nil)
	analysis := &models.AnalysisResult{Clips: candidatesWithScores(90)}
	batch := g.Generate(context.Background(), "src.mp4", testTranscript(), analysis, Options{}, nil)

	cropCalls := len(cropper.calls)

	require.NoError(t, batch.SetTemplate(0, models.TemplateKaraoke))
	require.NoError(t, batch.UpdateSubtitles(0, []models.TranscriptSegment{{Start: 0, End: 2, Text: "edited"}}))

	clip, err := batch.Get(0)
	require.NoError(t, err)
	assert.Equal(t, models.TemplateKaraoke, clip.Template)
	require.Len(t, clip.Subtitles, 1)
	assert.Equal(t, "edited", clip.Subtitles[0].Text)

	// Edits never touch the network.
	assert.Equal(t, cropCalls, len(cropper.calls))
}

func TestBatchRejectsUnknownTemplate(t *testing.T) {
	batch := &Batch{entries: make([]models.GeneratedClip, 1)}
	assert.Error(t, batch.SetTemplate(0, "glitter"))
}

func TestTryStartRenderSingleWinner(t *testing.T) {
	batch := &Batch{entries: make([]models.GeneratedClip, 1)}

	var wg sync.WaitGroup
	var wins int32
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if batch.TryStartRender(0) == nil {
				atomic.AddInt32(&wins, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)

	clip, err := batch.Get(0)
	require.NoError(t, err)
	assert.True(t, clip.IsRendering)
}

func TestTryStartRenderEligibility(t *testing.T) {
	batch := &Batch{entries: []models.GeneratedClip{
		{IsLoading: true},
		{Error: "crop failed"},
		{},
	}}

	assert.Error(t, batch.TryStartRender(0), "loading entries cannot render")
	assert.Error(t, batch.TryStartRender(1), "failed entries cannot render")
	assert.Error(t, batch.TryStartRender(3), "out of range")

	require.NoError(t, batch.TryStartRender(2))
	assert.Error(t, batch.TryStartRender(2), "claim holds until the render finishes")

	// A finished render releases the claim for the next submission.
	require.NoError(t, batch.SetRenderedURL(2, "http://cdn/final.mp4"))
	require.NoError(t, batch.TryStartRender(2))
}

func TestBatchIndexBounds(t *testing.T) {
	batch := &Batch{entries: make([]models.GeneratedClip, 2)}

	_, err := batch.Get(2)
	assert.Error(t, err)
	assert.Error(t, batch.UpdateSubtitles(-1, nil))
	assert.Error(t, batch.SetTemplate(5, models.TemplateMinimal))
}
