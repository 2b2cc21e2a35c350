package enhanceprovider

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var sampleImage = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01, 0xfe, 0xff, 0x42}

func jsonByteArray(data []byte) []any {
	out := make([]any, len(data))
	for i, b := range data {
		out[i] = float64(b)
	}
	return out
}

type failingBlob struct{}

func (failingBlob) ContentType() string    { return "image/png" }
func (failingBlob) Bytes() ([]byte, error) { return nil, errors.New("stream closed") }

type outputEnvelope struct {
	Output []string `json:"output"`
}

func TestNormalizer_AllShapes(t *testing.T) {
	b64 := base64.StdEncoding.EncodeToString(sampleImage)

	tests := []struct {
		name        string
		raw         func() any
		contentType string
	}{
		{"blob with type", func() any { return NewBlob("image/webp", sampleImage) }, "image/webp"},
		{"blob without type", func() any { return NewBlob("", sampleImage) }, "image/png"},
		{"http response", func() any {
			return &http.Response{
				Header: http.Header{"Content-Type": []string{"image/jpeg; charset=binary"}},
				Body:   io.NopCloser(bytes.NewReader(sampleImage)),
			}
		}, "image/jpeg"},
		{"http response without type", func() any {
			return &http.Response{Header: http.Header{}, Body: io.NopCloser(bytes.NewReader(sampleImage))}
		}, "image/png"},
		{"raw bytes", func() any { return append([]byte(nil), sampleImage...) }, "image/png"},
		{"bytes buffer", func() any { return bytes.NewBuffer(append([]byte(nil), sampleImage...)) }, "image/png"},
		{"data url", func() any { return "data:image/webp;base64," + b64 }, "image/webp"},
		{"bare base64", func() any { return b64 }, "image/png"},
		{"base64 with whitespace", func() any { return " " + b64[:8] + "\n" + b64[8:] + "\n" }, "image/png"},
		{"unpadded base64", func() any { return strings.TrimRight(b64, "=") }, "image/png"},
		{"image string", func() any { return map[string]any{"image": b64} }, "image/png"},
		{"image bytes", func() any { return map[string]any{"image": jsonByteArray(sampleImage)} }, "image/png"},
		{"images list", func() any { return map[string]any{"images": []any{"data:image/jpeg;base64," + b64}} }, "image/jpeg"},
		{"output string", func() any { return map[string]any{"output": b64} }, "image/png"},
		{"output image", func() any { return map[string]any{"output": map[string]any{"image": b64}} }, "image/png"},
		{"output images", func() any { return map[string]any{"output": map[string]any{"images": []any{b64}}} }, "image/png"},
		{"output list", func() any { return map[string]any{"output": []any{b64, "ignored"}} }, "image/png"},
		{"output bytes", func() any { return map[string]any{"output": jsonByteArray(sampleImage)} }, "image/png"},
		{"result image", func() any { return map[string]any{"result": map[string]any{"image": b64}} }, "image/png"},
		{"struct envelope", func() any { return outputEnvelope{Output: []string{b64}} }, "image/png"},
		{"reader", func() any { return bytes.NewReader(sampleImage) }, "image/png"},
	}

	n := NewNormalizer(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := n.Normalize(tt.raw())
			require.NoError(t, err)
			assert.Equal(t, sampleImage, out.Data)
			assert.Equal(t, tt.contentType, out.ContentType)
		})
	}
}

func TestNormalizer_Priority(t *testing.T) {
	n := NewNormalizer(nil)
	other := base64.StdEncoding.EncodeToString([]byte("second"))

	out, err := n.Normalize(map[string]any{
		"image":  base64.StdEncoding.EncodeToString(sampleImage),
		"output": other,
	})
	require.NoError(t, err)
	assert.Equal(t, sampleImage, out.Data)
}

func TestNormalizer_Failures(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("invalid base64", func(t *testing.T) {
		_, err := n.Normalize("not base64 at all!!")
		assert.ErrorIs(t, err, ErrInvalidBase64Image)
	})

	t.Run("empty string", func(t *testing.T) {
		_, err := n.Normalize("   ")
		assert.ErrorIs(t, err, ErrInvalidBase64Image)
	})

	t.Run("invalid data url payload", func(t *testing.T) {
		_, err := n.Normalize(map[string]any{"image": "data:image/png;base64,@@@"})
		assert.ErrorIs(t, err, ErrInvalidBase64Image)
	})

	t.Run("unsupported object", func(t *testing.T) {
		_, err := n.Normalize(map[string]any{"status": "ok"})
		assert.ErrorIs(t, err, ErrUnsupportedOutput)
	})

	t.Run("unsupported scalar", func(t *testing.T) {
		_, err := n.Normalize(42)
		assert.ErrorIs(t, err, ErrUnsupportedOutput)
	})

	t.Run("nil", func(t *testing.T) {
		_, err := n.Normalize(nil)
		assert.ErrorIs(t, err, ErrUnsupportedOutput)
	})

	t.Run("blob read error", func(t *testing.T) {
		_, err := n.Normalize(failingBlob{})
		assert.Error(t, err)
	})
}

func TestNormalizer_LogsOnlySnippet(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	n := NewNormalizer(zap.New(core))

	payload := "data:image/png;base64," + strings.Repeat("A", 4096) + "!"
	_, err := n.Normalize(payload)
	require.ErrorIs(t, err, ErrInvalidBase64Image)

	require.Equal(t, 1, logs.Len())
	snippet := logs.All()[0].ContextMap()["snippet"].(string)
	assert.Less(t, len(snippet), 64)
	assert.NotContains(t, snippet, strings.Repeat("A", 100))
}
