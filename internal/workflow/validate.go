package workflow

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxUploadBytes is the largest source video accepted for upload (500 MB).
const MaxUploadBytes = 500 * 1024 * 1024

// youtubeURLPattern matches the known-provider URL shapes accepted for
// remote ingestion: watch, shorts, embed, v paths and youtu.be short links,
// each carrying an 11-character video ID.
var youtubeURLPattern = regexp.MustCompile(
	`(?:https?://)?(?:www\.)?(?:youtube\.com/(?:watch\?.*v=|shorts/|embed/|v/)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// ValidationError rejects bad input before any external call. It is
// non-fatal: the workflow state does not change when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateSourceFile checks a local upload against the content-type and
// size policy.
func ValidateSourceFile(filename, contentType string, size int64) error {
	if filename == "" {
		return &ValidationError{Field: "file", Message: "filename is required"}
	}
	if !strings.HasPrefix(contentType, "video/") {
		return &ValidationError{Field: "file", Message: "file must be a video"}
	}
	if size <= 0 {
		return &ValidationError{Field: "file", Message: "file is empty"}
	}
	if size > MaxUploadBytes {
		return &ValidationError{Field: "file", Message: fmt.Sprintf("file exceeds the %d MB limit", MaxUploadBytes/(1024*1024))}
	}
	return nil
}

// ValidateSourceURL checks a remote URL against the known-provider pattern.
func ValidateSourceURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	if !youtubeURLPattern.MatchString(url) {
		return &ValidationError{Field: "url", Message: "not a supported video URL"}
	}
	return nil
}
