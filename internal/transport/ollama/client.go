// Package ollama implements embedding and generation providers backed by a local Ollama server.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

// DefaultHost is used when Config.Host is empty.
const DefaultHost = "http://localhost:11434"

// Config holds Ollama connection and model settings.
type Config struct {
	Host        string
	Model       string
	Temperature float32
	Timeout     time.Duration
	Logger      *zap.Logger
}

func newClient(cfg *Config) (*api.Client, error) {
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host %q: %w", host, err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return api.NewClient(u, &http.Client{Timeout: timeout}), nil
}

func wrapError(kind string, err, sentinel error) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return fmt.Errorf("%s API error %d: %s: %w", kind, statusErr.StatusCode, statusErr.ErrorMessage, sentinel)
	}
	return fmt.Errorf("%s request: %w: %w", kind, err, sentinel)
}

func heartbeat(ctx context.Context, c *api.Client) error {
	if err := c.Heartbeat(ctx); err != nil {
		return fmt.Errorf("ollama heartbeat: %w", err)
	}
	return nil
}
