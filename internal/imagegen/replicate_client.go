package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Options configures the Replicate client.
type Options struct {
	BaseURL    string
	APIToken   string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// Client talks to the Replicate predictions API. Calls are synchronous: the
// request blocks until the model finishes, which can take tens of seconds.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	model      string
}

// NewClient builds a Replicate client with defaults applied.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://api.replicate.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "google/nano-banana"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		token:      strings.TrimSpace(opts.APIToken),
		model:      model,
	}
}

type predictionInput struct {
	Prompt       string   `json:"prompt"`
	ImageInput   []string `json:"image_input"`
	AspectRatio  string   `json:"aspect_ratio"`
	OutputFormat string   `json:"output_format"`
}

type predictionRequest struct {
	Input predictionInput `json:"input"`
}

type predictionResponse struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	Detail string          `json:"detail"`
}

// Run submits one prediction and returns the provider output in whichever
// shape the model produced. Single attempt, no retry; the caller decides
// whether the user may try again.
func (c *Client) Run(ctx context.Context, imageURL, instruction string) (Output, error) {
	if c == nil {
		return nil, errors.New("imagegen: client not configured")
	}
	if c.token == "" {
		return nil, errors.New("imagegen: API token is missing")
	}
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" {
		return nil, errors.New("imagegen: input image url required")
	}

	payload := predictionRequest{Input: predictionInput{
		Prompt:       strings.TrimSpace(instruction),
		ImageInput:   []string{imageURL},
		AspectRatio:  "match_input_image",
		OutputFormat: "jpg",
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/models/" + c.model + "/predictions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Prefer", "wait")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagegen: prediction request: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 300 && isBinaryContent(contentType) {
		// Some model deployments answer the sync call with raw image bytes.
		return ByteStream{Body: resp.Body}, nil
	}

	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("imagegen: read prediction response: %w", err)
	}

	var pred predictionResponse
	if err := json.Unmarshal(raw, &pred); err != nil {
		return nil, fmt.Errorf("imagegen: decode prediction response: %w", err)
	}
	if resp.StatusCode >= 400 {
		detail := pred.Detail
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return nil, fmt.Errorf("imagegen: provider returned %d: %s", resp.StatusCode, detail)
	}
	if pred.Status == "failed" || pred.Status == "canceled" {
		return nil, fmt.Errorf("imagegen: prediction %s %s: %s", pred.ID, pred.Status, pred.Error)
	}

	return ParseOutput(pred.Output)
}

func isBinaryContent(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") ||
		strings.HasPrefix(contentType, "application/octet-stream")
}
