package enhanceprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/port/outbound"
)

// HTTPBindingConfig configures the HTTP inference binding.
type HTTPBindingConfig struct {
	BaseURL string
	Token   string
}

// HTTPBinding executes models through a POST {base}/run/{model} endpoint.
// Image responses are returned as a Blob, JSON responses as decoded values.
type HTTPBinding struct {
	client *http.Client
	cfg    HTTPBindingConfig
	logger *zap.Logger
}

// NewHTTPBinding creates a new HTTP inference binding.
func NewHTTPBinding(client *http.Client, cfg HTTPBindingConfig, logger *zap.Logger) *HTTPBinding {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &HTTPBinding{client: client, cfg: cfg, logger: logger.Named("binding")}
}

// Run posts payload to the model endpoint.
func (b *HTTPBinding) Run(ctx context.Context, modelID string, payload map[string]any) (any, error) {
	if b.cfg.BaseURL == "" {
		return nil, ErrBindingNotConfigured
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.BaseURL+"/run/"+modelID, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{Provider: "inference", Status: resp.StatusCode, Snippet: truncate(string(respBody), maxSnippetLen)}
		b.logger.Warn("inference request failed",
			zap.String("model", modelID),
			zap.Int("status", perr.Status),
			zap.String("snippet", perr.Snippet),
		)
		return nil, perr
	}

	contentType := resp.Header.Get("Content-Type")
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return NewBlob(contentType, respBody), nil
	case strings.Contains(contentType, "json"):
		var decoded any
		if err := json.Unmarshal(respBody, &decoded); err != nil {
			return nil, fmt.Errorf("unmarshal response: %w", err)
		}
		return decoded, nil
	default:
		return respBody, nil
	}
}

var _ outbound.InferenceBindingPort = (*HTTPBinding)(nil)
