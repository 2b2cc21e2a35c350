package enhanceprovider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/enhancer/internal/model"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

// fakeJobAPI is a scripted remote job API.
type fakeJobAPI struct {
	mu sync.Mutex

	runStatus      int
	runOutput      any
	modelsStatus   int
	pollsUntilDone int
	finalStatus    model.JobStatus
	finalOutput    any
	finalError     any

	runCalls    int
	modelsCalls int
	createCalls int
	pollCalls   int
	version     string
	lastStatus  model.JobStatus
}

func (f *fakeJobAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/run/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.runCalls++
		if f.runStatus != 0 && f.runStatus != http.StatusOK {
			w.WriteHeader(f.runStatus)
			w.Write([]byte(`{"detail":"not found"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"output": f.runOutput})
	})

	mux.HandleFunc("GET /v1/models/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.modelsCalls++
		if f.modelsStatus != 0 {
			w.WriteHeader(f.modelsStatus)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"latest_version": map[string]any{"id": "v-latest"},
			"versions":       []any{map[string]any{"id": "v-latest"}, map[string]any{"id": "v-old"}},
		})
	})

	mux.HandleFunc("POST /v1/predictions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Version string         `json:"version"`
			Input   map[string]any `json:"input"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.Input["image"])

		f.mu.Lock()
		defer f.mu.Unlock()
		f.createCalls++
		f.version = body.Version
		json.NewEncoder(w).Encode(model.ProviderJob{ID: "job-1", Status: model.JobStatusStarting})
	})

	mux.HandleFunc("GET /v1/predictions/job-1", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.pollCalls++
		job := model.ProviderJob{ID: "job-1", Status: model.JobStatusProcessing}
		if f.pollsUntilDone > 0 && f.pollCalls >= f.pollsUntilDone {
			job.Status = f.finalStatus
			job.Output = f.finalOutput
			job.Error = f.finalError
		}
		f.lastStatus = job.Status
		json.NewEncoder(w).Encode(job)
	})

	mux.HandleFunc("GET /files/out.webp", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/webp")
		w.Write(sampleImage)
	})

	return mux
}

func newRemoteJobTest(t *testing.T, api *fakeJobAPI, cfg RemoteJobConfig) (*RemoteJobAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	cfg.BaseURL = server.URL
	cfg.Token = "r8-token"
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	return NewRemoteJobAdapter(server.Client(), cfg, nil, nil), server
}

func remoteDescriptor(identifier string) *model.ModelDescriptor {
	return &model.ModelDescriptor{
		Slug:          "real-esrgan",
		Provider:      model.ProviderKindRemoteJob,
		ProviderModel: identifier,
		SupportsScale: true,
	}
}

func remoteInput() *model.ProviderInput {
	return &model.ProviderInput{Image: sampleImage, ContentType: "image/png", ImageURL: "https://cdn.example.com/originals/a.png", Scale: 4}
}

func dataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(sampleImage)
}

func TestRemoteJobAdapter_SyncRun(t *testing.T) {
	api := &fakeJobAPI{runOutput: dataURL()}
	adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{})

	out, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
	require.NoError(t, err)
	assert.Equal(t, sampleImage, out.Data)
	assert.Equal(t, 1, api.runCalls)
	assert.Equal(t, 1, api.modelsCalls)
	assert.Equal(t, 0, api.createCalls)
}

func TestRemoteJobAdapter_FallbackToPolling(t *testing.T) {
	api := &fakeJobAPI{
		runStatus:      http.StatusNotFound,
		pollsUntilDone: 3,
		finalStatus:    model.JobStatusSucceeded,
		finalOutput:    []string{dataURL()},
	}
	adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{})

	out, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
	require.NoError(t, err)
	assert.Equal(t, sampleImage, out.Data)
	assert.Equal(t, "image/png", out.ContentType)

	assert.Equal(t, 1, api.runCalls)
	assert.Equal(t, 1, api.modelsCalls)
	assert.Equal(t, 1, api.createCalls)
	assert.Equal(t, 3, api.pollCalls)
	assert.Equal(t, "v-latest", api.version)
	assert.Equal(t, model.JobStatusSucceeded, api.lastStatus)
}

func TestRemoteJobAdapter_SyncUnsupportedPrefix(t *testing.T) {
	api := &fakeJobAPI{pollsUntilDone: 1, finalStatus: model.JobStatusSucceeded, finalOutput: dataURL()}
	adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{SyncUnsupportedPrefixes: []string{"sczhou/"}})

	_, err := adapter.Run(context.Background(), remoteDescriptor("sczhou/codeformer"), remoteInput())
	require.NoError(t, err)
	assert.Equal(t, 0, api.runCalls)
	assert.Equal(t, 1, api.createCalls)
}

func TestRemoteJobAdapter_VersionResolution(t *testing.T) {
	t.Run("pinned version", func(t *testing.T) {
		api := &fakeJobAPI{pollsUntilDone: 1, finalStatus: model.JobStatusSucceeded, finalOutput: dataURL()}
		adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{SyncUnsupportedPrefixes: []string{"tencentarc/"}})

		_, err := adapter.Run(context.Background(), remoteDescriptor("tencentarc/gfpgan:abc123"), remoteInput())
		require.NoError(t, err)
		assert.Equal(t, "abc123", api.version)
		assert.Zero(t, api.modelsCalls)
	})

	t.Run("lookup failure falls back to slug", func(t *testing.T) {
		api := &fakeJobAPI{modelsStatus: http.StatusInternalServerError, pollsUntilDone: 1, finalStatus: model.JobStatusSucceeded, finalOutput: dataURL()}
		adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{SyncUnsupportedPrefixes: []string{"tencentarc/"}})

		_, err := adapter.Run(context.Background(), remoteDescriptor("tencentarc/gfpgan"), remoteInput())
		require.NoError(t, err)
		assert.Equal(t, "tencentarc/gfpgan", api.version)
		assert.Equal(t, 1, api.modelsCalls)
	})

	t.Run("unknown version is looked up again after run endpoint 404", func(t *testing.T) {
		api := &fakeJobAPI{runStatus: http.StatusNotFound, modelsStatus: http.StatusInternalServerError, pollsUntilDone: 1, finalStatus: model.JobStatusSucceeded, finalOutput: dataURL()}
		adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{})

		_, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
		require.NoError(t, err)
		assert.Equal(t, 2, api.modelsCalls)
		assert.Equal(t, "nightmareai/real-esrgan", api.version)
	})
}

func TestRemoteJobAdapter_TerminalFailures(t *testing.T) {
	t.Run("failed job is a validation error", func(t *testing.T) {
		api := &fakeJobAPI{runStatus: http.StatusNotFound, pollsUntilDone: 2, finalStatus: model.JobStatusFailed, finalError: "CUDA out of memory"}
		adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{})

		_, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		assert.Contains(t, err.Error(), "CUDA out of memory")
	})

	t.Run("canceled job is a server error", func(t *testing.T) {
		api := &fakeJobAPI{runStatus: http.StatusNotFound, pollsUntilDone: 1, finalStatus: model.JobStatusCanceled}
		adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{})

		_, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
		assert.ErrorIs(t, err, ErrJobIncomplete)
		assert.Equal(t, apperrors.KindServerError, apperrors.KindOf(err))
	})

	t.Run("poll cap", func(t *testing.T) {
		api := &fakeJobAPI{runStatus: http.StatusNotFound}
		adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{PollInterval: 10 * time.Millisecond, PollTimeout: 60 * time.Millisecond})

		start := time.Now()
		_, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
		assert.ErrorIs(t, err, ErrJobIncomplete)
		assert.Less(t, time.Since(start), time.Second)
	})
}

func TestRemoteJobAdapter_ProviderErrorHidesBody(t *testing.T) {
	api := &fakeJobAPI{runStatus: http.StatusBadGateway}
	adapter, _ := newRemoteJobTest(t, api, RemoteJobConfig{})

	_, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())

	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadGateway, perr.Status)
	assert.Equal(t, "remote-job", perr.Provider)
	assert.Contains(t, perr.Snippet, "not found")
	assert.False(t, strings.Contains(err.Error(), "not found"))
	assert.Equal(t, 0, api.createCalls)
}

func TestRemoteJobAdapter_DownloadsURLOutput(t *testing.T) {
	api := &fakeJobAPI{runStatus: http.StatusNotFound, pollsUntilDone: 1, finalStatus: model.JobStatusSucceeded}
	adapter, server := newRemoteJobTest(t, api, RemoteJobConfig{})
	api.finalOutput = []any{server.URL + "/files/out.webp"}

	out, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
	require.NoError(t, err)
	assert.Equal(t, sampleImage, out.Data)
	assert.Equal(t, "image/webp", out.ContentType)
}

func TestRemoteJobAdapter_OutputDownloadCap(t *testing.T) {
	api := &fakeJobAPI{runStatus: http.StatusNotFound, pollsUntilDone: 1, finalStatus: model.JobStatusSucceeded}
	adapter, server := newRemoteJobTest(t, api, RemoteJobConfig{MaxOutputBytes: int64(len(sampleImage) - 1)})
	api.finalOutput = server.URL + "/files/out.webp"

	_, err := adapter.Run(context.Background(), remoteDescriptor("nightmareai/real-esrgan"), remoteInput())
	assert.ErrorIs(t, err, ErrOutputTooLarge)
	assert.Equal(t, apperrors.KindServerError, apperrors.KindOf(err))
}

func TestRemoteJobAdapter_NotConfigured(t *testing.T) {
	adapter := NewRemoteJobAdapter(nil, RemoteJobConfig{BaseURL: "https://api.example.com"}, nil, nil)
	_, err := adapter.Run(context.Background(), remoteDescriptor("a/b"), remoteInput())
	assert.ErrorIs(t, err, ErrBindingNotConfigured)
}
