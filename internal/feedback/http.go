package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAnalyzer calls a chat-style analysis endpoint.
type HTTPAnalyzer struct {
	url    string
	apiKey string
	client *http.Client
}

// NewHTTPAnalyzer creates an analyzer posting to url.
func NewHTTPAnalyzer(url, apiKey string, timeout time.Duration) *HTTPAnalyzer {
	return &HTTPAnalyzer{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type analyzeRequest struct {
	Path         string `json:"path"`
	Instructions string `json:"instructions"`
}

type analyzeResponse struct {
	Message struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// Analyze sends the file path and instructions and returns the feedback
// JSON extracted from the reply.
func (a *HTTPAnalyzer) Analyze(ctx context.Context, path, instructions string) (json.RawMessage, error) {
	body, err := json.Marshal(analyzeRequest{Path: path, Instructions: instructions})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analyzer request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analyzer returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	text, err := contentText(out.Message.Content)
	if err != nil {
		return nil, err
	}
	raw, _, err := Parse(text)
	return raw, err
}

// contentText accepts either a plain string or a list of text parts, using
// the first part.
func contentText(content json.RawMessage) (string, error) {
	if len(content) == 0 {
		return "", fmt.Errorf("%w: empty content", ErrMalformed)
	}

	var s string
	if err := json.Unmarshal(content, &s); err == nil {
		return s, nil
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(content, &parts); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: no content parts", ErrMalformed)
	}
	return parts[0].Text, nil
}
