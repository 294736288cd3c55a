package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ragchat/internal/version"
)

func TestClientAsk(t *testing.T) {
	var got askRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ask", r.URL.Path)
		assert.Equal(t, version.UserAgent(), r.Header.Get("User-Agent"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(askResponse{
			Question:   got.Question,
			K:          2,
			Answer:     "Dogs bark.",
			Contexts:   []string{"dogs bark"},
			Confidence: 0.9,
		})
	}))
	defer srv.Close()

	c := newClient(srv.URL+"/", time.Second)
	resp, err := c.ask(context.Background(), "what do dogs do?", 0)
	require.NoError(t, err)

	assert.Equal(t, "what do dogs do?", got.Question)
	assert.Zero(t, got.K)
	assert.Equal(t, "Dogs bark.", resp.Answer)
	assert.Equal(t, []string{"dogs bark"}, resp.Contexts)
	assert.InDelta(t, 0.9, resp.Confidence, 1e-9)
}

func TestClientAsk_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(errorResponse{Code: "documents_not_loaded", Message: "documents not loaded"})
	}))
	defer srv.Close()

	_, err := newClient(srv.URL, time.Second).ask(context.Background(), "q", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "documents_not_loaded")
}

func TestREPL(t *testing.T) {
	color.NoColor = true

	var questions []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		questions = append(questions, req.Question)
		_ = json.NewEncoder(w).Encode(askResponse{Answer: "ok", Contexts: []string{"ctx"}, Confidence: 0.4})
	}))
	defer srv.Close()

	var out bytes.Buffer
	in := strings.NewReader("first\n\n  second  \nexit\nthird\n")
	err := repl(context.Background(), newClient(srv.URL, time.Second), 0, in, printer{out: &out, showContexts: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, questions)
	assert.Contains(t, out.String(), "Answer: ok")
	assert.Contains(t, out.String(), "[1] ctx")
	assert.Contains(t, out.String(), "confidence: 0.40")
}
