package clips

import (
	"fmt"
	"sync"

	"clipforge/pkg/models"
)

// Batch owns the GeneratedClip entries of one generation run. Entries are
// mutated in place by edits and render bookkeeping; a render always works
// from a snapshot taken at submission, so an edit landing during an
// in-flight render affects only the next submission.
type Batch struct {
	mu      sync.Mutex
	entries []models.GeneratedClip
}

// Len returns the number of entries.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Clips returns a copy of all entries.
func (b *Batch) Clips() []models.GeneratedClip {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.GeneratedClip(nil), b.entries...)
}

// Get returns a copy of one entry.
func (b *Batch) Get(index int) (models.GeneratedClip, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return models.GeneratedClip{}, fmt.Errorf("clip index %d out of range [0,%d)", index, len(b.entries))
	}
	return b.entries[index], nil
}

// UpdateSubtitles replaces an entry's subtitle slice. Pure local edit; no
// render job is implied.
func (b *Batch) UpdateSubtitles(index int, segments []models.TranscriptSegment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("clip index %d out of range [0,%d)", index, len(b.entries))
	}
	b.entries[index].Subtitles = append([]models.TranscriptSegment(nil), segments...)
	return nil
}

// SetTemplate changes an entry's caption template. Pure local edit.
func (b *Batch) SetTemplate(index int, template string) error {
	if !models.IsValidTemplate(template) {
		return fmt.Errorf("unknown template %q", template)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("clip index %d out of range [0,%d)", index, len(b.entries))
	}
	b.entries[index].Template = template
	return nil
}

// TryStartRender claims an entry for rendering. The eligibility checks and
// the flag flip happen under one lock, so concurrent submissions for the
// same entry resolve to a single winner.
func (b *Batch) TryStartRender(index int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("clip index %d out of range [0,%d)", index, len(b.entries))
	}

	entry := &b.entries[index]
	if entry.IsLoading {
		return fmt.Errorf("clip %d is still being generated", index)
	}
	if entry.Error != "" {
		return fmt.Errorf("clip %d failed to generate; nothing to render", index)
	}
	if entry.IsRendering {
		return fmt.Errorf("a render is already in flight for clip %d", index)
	}

	entry.IsRendering = true
	return nil
}

// SetRendering flags an entry as having an in-flight render.
func (b *Batch) SetRendering(index int, rendering bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("clip index %d out of range [0,%d)", index, len(b.entries))
	}
	b.entries[index].IsRendering = rendering
	return nil
}

// SetRenderedURL records the durable URL of a finished render.
func (b *Batch) SetRenderedURL(index int, url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("clip index %d out of range [0,%d)", index, len(b.entries))
	}
	b.entries[index].RenderedVideoURL = url
	b.entries[index].IsRendering = false
	return nil
}

func (b *Batch) finishWithResult(index int, result *models.CropResult, subtitles []models.TranscriptSegment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := &b.entries[index]
	entry.VideoURL = result.OutputURL
	entry.ClipPath = result.OutputPath
	entry.Duration = result.Duration
	entry.Subtitles = subtitles
	entry.IsLoading = false
}

func (b *Batch) finishWithError(index int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	entry := &b.entries[index]
	entry.Error = message
	entry.IsLoading = false
}
