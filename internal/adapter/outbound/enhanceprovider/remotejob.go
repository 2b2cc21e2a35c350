package enhanceprovider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

const (
	remoteJobProvider     = "remote-job"
	defaultMaxOutputBytes = 40 << 20
)

// RemoteJobConfig configures the remote job API adapter.
type RemoteJobConfig struct {
	BaseURL      string
	Token        string
	PollInterval time.Duration
	PollTimeout  time.Duration
	// Model identifiers with these prefixes skip the synchronous run endpoint.
	SyncUnsupportedPrefixes []string
	// MaxOutputBytes caps a downloaded output image.
	MaxOutputBytes int64
}

// RemoteJobAdapter runs models on an HTTP job API. It tries the synchronous
// run endpoint first and falls back to creating and polling a prediction.
type RemoteJobAdapter struct {
	client     *http.Client
	cfg        RemoteJobConfig
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewRemoteJobAdapter creates a new remote job adapter.
func NewRemoteJobAdapter(client *http.Client, cfg RemoteJobConfig, normalizer *Normalizer, logger *zap.Logger) *RemoteJobAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(logger)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 600 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 60 * time.Second
	}
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &RemoteJobAdapter{
		client:     client,
		cfg:        cfg,
		normalizer: normalizer,
		logger:     logger.Named("remotejob"),
	}
}

// Kind returns the provider family.
func (a *RemoteJobAdapter) Kind() model.ProviderKind {
	return model.ProviderKindRemoteJob
}

// Run executes the model and normalizes its output.
func (a *RemoteJobAdapter) Run(ctx context.Context, m *model.ModelDescriptor, input *model.ProviderInput) (*model.ImageOutput, error) {
	if a.cfg.BaseURL == "" || a.cfg.Token == "" {
		return nil, ErrBindingNotConfigured
	}

	image := input.ImageURL
	if image == "" {
		image = "data:" + input.ContentType + ";base64," + base64.StdEncoding.EncodeToString(input.Image)
	}
	payload := buildPayload(m, input, image)
	identifier := m.Identifier()
	version, resolved := a.resolveVersion(ctx, identifier)

	if !a.syncUnsupported(identifier) {
		output, err := a.runSync(ctx, identifier, payload)
		if err == nil {
			return a.materialize(ctx, output)
		}
		if !IsNotFound(err) {
			return nil, err
		}
		a.logger.Debug("run endpoint unavailable, submitting job", zap.String("model", identifier))
		if !resolved {
			version, _ = a.resolveVersion(ctx, identifier)
		}
	}

	job, err := a.createJob(ctx, version, payload)
	if err != nil {
		return nil, err
	}

	job, err = a.poll(ctx, job)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case model.JobStatusSucceeded:
		return a.materialize(ctx, job.Output)
	case model.JobStatusFailed:
		msg := truncate(errorText(job.Error), maxSnippetLen)
		a.logger.Warn("provider job failed",
			zap.String("model", identifier),
			zap.String("job_id", job.ID),
			zap.String("error", msg),
		)
		if msg == "" {
			msg = "unknown error"
		}
		return nil, apperrors.ValidationError("enhancement failed: " + msg)
	default:
		return nil, fmt.Errorf("%w: job %s ended as %s", ErrJobIncomplete, job.ID, job.Status)
	}
}

func (a *RemoteJobAdapter) syncUnsupported(identifier string) bool {
	for _, prefix := range a.cfg.SyncUnsupportedPrefixes {
		if prefix != "" && strings.HasPrefix(identifier, prefix) {
			return true
		}
	}
	return false
}

// runSync calls POST /v1/run/{model}. The returned value is the raw output.
func (a *RemoteJobAdapter) runSync(ctx context.Context, identifier string, payload map[string]any) (any, error) {
	resp, body, err := a.do(ctx, http.MethodPost, "/v1/run/"+identifier, map[string]any{"input": payload})
	if err != nil {
		return nil, err
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "image/") {
		return NewBlob(resp.Header.Get("Content-Type"), body), nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("unmarshal run response: %w", err)
	}
	if obj, ok := decoded.(map[string]any); ok {
		if out, ok := obj["output"]; ok {
			return out, nil
		}
	}
	return decoded, nil
}

type modelMetadata struct {
	LatestVersion *struct {
		ID string `json:"id"`
	} `json:"latest_version"`
	Versions []struct {
		ID string `json:"id"`
	} `json:"versions"`
}

// resolveVersion returns the version id for identifier and whether it is
// known. Lookup failures fall back to the bare identifier.
func (a *RemoteJobAdapter) resolveVersion(ctx context.Context, identifier string) (string, bool) {
	if _, version, ok := strings.Cut(identifier, ":"); ok {
		return version, true
	}
	if !strings.Contains(identifier, "/") {
		return identifier, true
	}

	_, body, err := a.do(ctx, http.MethodGet, "/v1/models/"+identifier, nil)
	if err != nil {
		a.logger.Warn("failed to resolve model version", zap.String("model", identifier), zap.Error(err))
		return identifier, false
	}

	var meta modelMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		a.logger.Warn("failed to decode model metadata", zap.String("model", identifier), zap.Error(err))
		return identifier, false
	}
	if meta.LatestVersion != nil && meta.LatestVersion.ID != "" {
		return meta.LatestVersion.ID, true
	}
	if len(meta.Versions) > 0 && meta.Versions[0].ID != "" {
		return meta.Versions[0].ID, true
	}
	return identifier, false
}

func (a *RemoteJobAdapter) createJob(ctx context.Context, version string, payload map[string]any) (*model.ProviderJob, error) {
	_, body, err := a.do(ctx, http.MethodPost, "/v1/predictions", map[string]any{
		"version": version,
		"input":   payload,
	})
	if err != nil {
		return nil, err
	}

	var job model.ProviderJob
	if err := json.Unmarshal(body, &job); err != nil {
		return nil, fmt.Errorf("unmarshal prediction: %w", err)
	}
	if job.ID == "" && !job.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: prediction has no id", ErrJobIncomplete)
	}
	return &job, nil
}

// poll refreshes job until it reaches a terminal state or the poll cap elapses.
func (a *RemoteJobAdapter) poll(ctx context.Context, job *model.ProviderJob) (*model.ProviderJob, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.PollTimeout)
	defer cancel()

	limiter := rate.NewLimiter(rate.Every(a.cfg.PollInterval), 1)
	// The first token is spent so the first refresh waits one interval.
	limiter.Allow()

	for !job.Status.IsTerminal() {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: job %s still %s after %s", ErrJobIncomplete, job.ID, job.Status, a.cfg.PollTimeout)
		}

		_, body, err := a.do(ctx, http.MethodGet, "/v1/predictions/"+job.ID, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: job %s: %v", ErrJobIncomplete, job.ID, ctx.Err())
			}
			return nil, err
		}

		var next model.ProviderJob
		if err := json.Unmarshal(body, &next); err != nil {
			return nil, fmt.Errorf("unmarshal prediction: %w", err)
		}
		if next.ID == "" {
			next.ID = job.ID
		}
		job = &next
	}
	return job, nil
}

// materialize turns a job output into image bytes. URL outputs are downloaded.
func (a *RemoteJobAdapter) materialize(ctx context.Context, output any) (*model.ImageOutput, error) {
	value := output
	switch v := output.(type) {
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				value = s
			}
		}
	case []string:
		if len(v) > 0 {
			value = v[0]
		}
	}

	s, ok := value.(string)
	if !ok || !(strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) {
		return a.normalizer.Normalize(value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download output: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxSnippetLen))
		perr := &ProviderError{Provider: remoteJobProvider, Status: resp.StatusCode, Snippet: truncate(string(snippet), maxSnippetLen)}
		a.logger.Warn("output download failed", zap.Int("status", perr.Status), zap.String("snippet", perr.Snippet))
		return nil, perr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.cfg.MaxOutputBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	if int64(len(data)) > a.cfg.MaxOutputBytes {
		a.logger.Warn("output download exceeds limit", zap.Int64("limit", a.cfg.MaxOutputBytes))
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrOutputTooLarge, a.cfg.MaxOutputBytes)
	}
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return a.normalizer.Normalize(resp)
}

// do sends an authenticated JSON request and returns the response body. Non-2xx
// responses become a *ProviderError.
func (a *RemoteJobAdapter) do(ctx context.Context, method, path string, payload any) (*http.Response, []byte, error) {
	var reader io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.Token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &ProviderError{Provider: remoteJobProvider, Status: resp.StatusCode, Snippet: truncate(string(body), maxSnippetLen)}
		if resp.StatusCode != http.StatusNotFound {
			a.logger.Warn("provider request failed",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", perr.Status),
				zap.String("snippet", perr.Snippet),
			)
		}
		return resp, nil, perr
	}
	return resp, body, nil
}

func errorText(v any) string {
	switch e := v.(type) {
	case nil:
		return ""
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg
		}
		if msg, ok := e["detail"].(string); ok {
			return msg
		}
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}

var _ outbound.ProviderAdapterPort = (*RemoteJobAdapter)(nil)
