// Package engine is the HTTP client for the external video processing
// engine, which owns ingestion (file upload and URL download),
// transcription, and smart cropping. The engine's implementation is opaque;
// only its request/response shapes matter here.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"clipforge/pkg/models"
)

// Client talks to one processing-engine instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an engine client. A zero timeout disables the HTTP
// timeout, leaving deadlines to the caller's context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Upload streams a local video file to the engine and returns the
// server-local path the engine stored it under.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*models.IngestResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result models.IngestResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}

	return &result, nil
}

// DownloadFromURL asks the engine to fetch a remote video (YouTube) into its
// uploads directory. The response shape matches Upload.
func (c *Client) DownloadFromURL(ctx context.Context, url string) (*models.IngestResult, error) {
	var result models.IngestResult
	err := c.postJSON(ctx, "/download-youtube", map[string]string{"url": url}, &result)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	return &result, nil
}

// Transcribe runs the engine's transcription pipeline against a
// server-local video path. language is optional; empty means auto-detect.
func (c *Client) Transcribe(ctx context.Context, path, language string) (*models.Transcript, error) {
	payload := map[string]any{"video_path": path}
	if language != "" {
		payload["language"] = language
	}

	var result models.Transcript
	if err := c.postJSON(ctx, "/transcribe", payload, &result); err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	return &result, nil
}

type cropResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	models.CropResult
}

// Crop extracts [start, end] from a source video and re-frames it to the
// given aspect ratio using the engine's face-tracking crop.
func (c *Client) Crop(ctx context.Context, path string, start, end float64, cropMode, aspectRatio string) (*models.CropResult, error) {
	payload := map[string]any{
		"video_path":   path,
		"start_time":   start,
		"end_time":     end,
		"crop_mode":    cropMode,
		"aspect_ratio": aspectRatio,
	}

	var result cropResponse
	if err := c.postJSON(ctx, "/render-clip", payload, &result); err != nil {
		return nil, fmt.Errorf("crop failed: %w", err)
	}
	if !result.Success {
		if result.Error != "" {
			return nil, fmt.Errorf("crop failed: %s", result.Error)
		}
		return nil, fmt.Errorf("crop failed: engine reported no output")
	}

	return &result.CropResult, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// The engine reports failures as {"detail": "..."}.
		var remote struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&remote); err == nil && remote.Detail != "" {
			return fmt.Errorf("engine returned %d: %s", resp.StatusCode, remote.Detail)
		}
		return fmt.Errorf("engine returned unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode engine response: %w", err)
	}

	return nil
}
