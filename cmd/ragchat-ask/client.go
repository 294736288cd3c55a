package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/ragchat/internal/version"
)

type askRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

type askResponse struct {
	Question   string   `json:"question"`
	K          int      `json:"k"`
	Answer     string   `json:"answer"`
	Contexts   []string `json:"contexts"`
	Confidence float64  `json:"confidence"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// client calls a running ragchat API.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ask posts one question. k <= 0 lets the server apply its default.
func (c *client) ask(ctx context.Context, question string, k int) (askResponse, error) {
	body, err := json.Marshal(askRequest{Question: question, K: k})
	if err != nil {
		return askResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return askResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.http.Do(req)
	if err != nil {
		return askResponse{}, fmt.Errorf("post /ask: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return askResponse{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Message != "" {
			return askResponse{}, fmt.Errorf("server returned %d %s: %s", resp.StatusCode, e.Code, e.Message)
		}
		return askResponse{}, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	var out askResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return askResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}
