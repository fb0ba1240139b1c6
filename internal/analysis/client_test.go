package analysis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipforge/pkg/models"
)

func TestFormatTranscript(t *testing.T) {
	tr := &models.Transcript{
		Segments: []models.TranscriptSegment{
			{Start: 0, End: 4.5, Text: "Welcome to the show."},
			{Start: 4.5, End: 9.34, Text: "Today we talk about Go."},
		},
	}

	out := FormatTranscript(tr)
	assert.Equal(t, "[0.0s - 4.5s] Welcome to the show.\n[4.5s - 9.3s] Today we talk about Go.\n", out)
}

func TestAnalyzeRejectsShortTranscript(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "gpt-4o-mini")

	_, err := client.Analyze(context.Background(), "too short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
	assert.False(t, called, "short input must be rejected before any remote call")
}

func TestAnalyzeAppendsChatCompletionsOnce(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": `{"clips":[],"total_clips":0}`}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/api/v1/", "key", "gpt-4o-mini")

	text := "[0.0s - 60.0s] " + strings.Repeat("interesting words ", 10)
	_, err := client.Analyze(context.Background(), text)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/chat/completions", gotPath)
}

func TestAnalyzeParsesModelContent(t *testing.T) {
	analysisJSON, err := json.Marshal(models.AnalysisResult{
		Clips: []models.ScoredClipCandidate{
			{StartTime: 12, EndTime: 44, ViralScore: 91, Summary: "strong opener", Hook: "wait for it", Conclusion: "mic drop"},
		},
		AnalysisSummary: "one strong clip",
	})
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Contains(t, req.Messages[1].Content, "[0.0s")

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": string(analysisJSON)}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "gpt-4o-mini")

	text := "[0.0s - 60.0s] " + strings.Repeat("interesting words ", 10)
	result, err := client.Analyze(context.Background(), text)
	require.NoError(t, err)
	require.Len(t, result.Clips, 1)
	assert.Equal(t, 91.0, result.Clips[0].ViralScore)
	assert.Equal(t, 1, result.TotalClips)
	assert.Equal(t, "one strong clip", result.AnalysisSummary)
}

func TestAnalyzeSurfacesEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "gpt-4o-mini")

	_, err := client.Analyze(context.Background(), strings.Repeat("x", MinTranscriptLength))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestAnalyzeRejectsUnparseableContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "sorry, I cannot help with that"}},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "gpt-4o-mini")

	_, err := client.Analyze(context.Background(), strings.Repeat("x", MinTranscriptLength))
	assert.Error(t, err)
}
