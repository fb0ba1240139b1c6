// Package analysis scores a transcript for viral clip candidates by calling
// an OpenAI-compatible chat-completions endpoint with a strict JSON response
// contract.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipforge/pkg/models"
)

// MinTranscriptLength is the smallest formatted transcript worth analyzing.
// Shorter input is rejected locally before any remote call.
const MinTranscriptLength = 100

const requestTimeout = 90 * time.Second

// Client calls the content-analysis model.
type Client struct {
	endpoint   string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient creates an analysis client for an OpenAI-compatible endpoint.
func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// FormatTranscript flattens a transcript into the timestamped text block the
// model is prompted with, one segment per line.
func FormatTranscript(t *models.Transcript) string {
	var b strings.Builder
	for _, seg := range t.Segments {
		fmt.Fprintf(&b, "[%.1fs - %.1fs] %s\n", seg.Start, seg.End, seg.Text)
	}
	return b.String()
}

const systemPrompt = `You are a short-form video editor. Given a timestamped transcript, identify the sub-segments most likely to perform as standalone vertical clips. Each clip must be 15-90 seconds, start and end on natural sentence boundaries, and be scored 0-100 for engagement potential. Respond with JSON only.`

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Analyze sends a formatted transcript to the model and returns the ranked
// candidate list. Input shorter than MinTranscriptLength is a local
// validation failure, not a remote error.
func (c *Client) Analyze(ctx context.Context, formattedTranscript string) (*models.AnalysisResult, error) {
	if len(formattedTranscript) < MinTranscriptLength {
		return nil, fmt.Errorf("transcript too short for analysis: %d chars, need at least %d",
			len(formattedTranscript), MinTranscriptLength)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: formattedTranscript},
		},
		ResponseFormat: responseSchema(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal analysis request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("analysis endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("analysis model error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("analysis response carried no choices")
	}

	var result models.AnalysisResult
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse analysis content: %w", err)
	}
	if result.TotalClips == 0 {
		result.TotalClips = len(result.Clips)
	}

	return &result, nil
}

func responseSchema() map[string]any {
	return map[string]any{
		"type": "json_schema",
		"json_schema": map[string]any{
			"name": "clip_analysis",
			"schema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"clips": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"start_time":  map[string]any{"type": "number"},
								"end_time":    map[string]any{"type": "number"},
								"viral_score": map[string]any{"type": "number"},
								"summary":     map[string]any{"type": "string"},
								"hook":        map[string]any{"type": "string"},
								"conclusion":  map[string]any{"type": "string"},
							},
							"required": []string{"start_time", "end_time", "viral_score", "summary", "hook", "conclusion"},
						},
					},
					"total_clips":      map[string]any{"type": "integer"},
					"analysis_summary": map[string]any{"type": "string"},
				},
				"required": []string{"clips", "analysis_summary"},
			},
		},
	}
}
