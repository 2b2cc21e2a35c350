package enhanceprovider

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
)

const defaultImageType = "image/png"

// Blob is a binary value that knows its own content type, such as an image
// response returned by an inference binding.
type Blob interface {
	ContentType() string
	Bytes() ([]byte, error)
}

type bytesBlob struct {
	contentType string
	data        []byte
}

// NewBlob wraps bytes and a content type as a Blob.
func NewBlob(contentType string, data []byte) Blob {
	return &bytesBlob{contentType: contentType, data: data}
}

func (b *bytesBlob) ContentType() string    { return b.contentType }
func (b *bytesBlob) Bytes() ([]byte, error) { return b.data, nil }

// shapeMatcher returns ok=false when raw is not its shape. A non-nil error
// means the shape matched but could not be decoded.
type shapeMatcher func(raw any) (out *model.ImageOutput, ok bool, err error)

// Normalizer turns heterogeneous provider return values into image bytes.
type Normalizer struct {
	matchers []shapeMatcher
	logger   *zap.Logger
}

// NewNormalizer creates a normalizer with the built-in shapes in priority order.
func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		matchers: []shapeMatcher{
			matchBlob,
			matchHTTPResponse,
			matchBytes,
			matchString,
			matchStructured,
			matchReader,
		},
		logger: logger,
	}
}

// Normalize decodes raw into image bytes and a content type. The first matching
// shape wins.
func (n *Normalizer) Normalize(raw any) (*model.ImageOutput, error) {
	for _, match := range n.matchers {
		out, ok, err := match(raw)
		if !ok {
			continue
		}
		if err != nil {
			n.logger.Warn("failed to decode provider output",
				zap.String("shape", fmt.Sprintf("%T", raw)),
				zap.String("snippet", snippetOf(raw)),
				zap.Error(err),
			)
			return nil, err
		}
		return out, nil
	}

	n.logger.Warn("unsupported provider output",
		zap.String("shape", fmt.Sprintf("%T", raw)),
		zap.String("snippet", snippetOf(raw)),
	)
	return nil, ErrUnsupportedOutput
}

func matchBlob(raw any) (*model.ImageOutput, bool, error) {
	b, ok := raw.(Blob)
	if !ok || b == nil {
		return nil, false, nil
	}
	data, err := b.Bytes()
	if err != nil {
		return nil, true, fmt.Errorf("read blob: %w", err)
	}
	return &model.ImageOutput{Data: data, ContentType: mediaTypeOr(b.ContentType())}, true, nil
}

func matchHTTPResponse(raw any) (*model.ImageOutput, bool, error) {
	resp, ok := raw.(*http.Response)
	if !ok || resp == nil || resp.Body == nil {
		return nil, false, nil
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response body: %w", err)
	}
	return &model.ImageOutput{Data: data, ContentType: mediaTypeOr(resp.Header.Get("Content-Type"))}, true, nil
}

func matchBytes(raw any) (*model.ImageOutput, bool, error) {
	switch v := raw.(type) {
	case []byte:
		return &model.ImageOutput{Data: v, ContentType: defaultImageType}, true, nil
	case *bytes.Buffer:
		if v == nil {
			return nil, false, nil
		}
		return &model.ImageOutput{Data: v.Bytes(), ContentType: defaultImageType}, true, nil
	}
	return nil, false, nil
}

func matchString(raw any) (*model.ImageOutput, bool, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, false, nil
	}
	out, err := decodeImageString(s)
	return out, true, err
}

func matchStructured(raw any) (*model.ImageOutput, bool, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, false, nil
	}
	candidate, found := findImage(obj)
	if !found {
		return nil, false, nil
	}
	if s, ok := candidate.(string); ok {
		out, err := decodeImageString(s)
		return out, true, err
	}
	data, _ := asByteArray(candidate)
	return &model.ImageOutput{Data: data, ContentType: defaultImageType}, true, nil
}

func matchReader(raw any) (*model.ImageOutput, bool, error) {
	r, ok := raw.(io.Reader)
	if !ok || r == nil {
		return nil, false, nil
	}
	if c, ok := r.(io.Closer); ok {
		defer c.Close()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, true, fmt.Errorf("read output stream: %w", err)
	}
	return &model.ImageOutput{Data: data, ContentType: defaultImageType}, true, nil
}

// findImage searches image, images[0], output and result in that order.
func findImage(obj map[string]any) (any, bool) {
	if v, ok := imageValue(obj["image"]); ok {
		return v, true
	}
	if v, ok := firstImage(obj["images"]); ok {
		return v, true
	}
	for _, key := range []string{"output", "result"} {
		if v, ok := nestedImage(obj[key]); ok {
			return v, true
		}
	}
	return nil, false
}

// nestedImage handles the output/result sub-shape: a string, a byte array, an
// object with image or images[0], or a list whose first element is an image.
func nestedImage(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	if img, ok := imageValue(v); ok {
		return img, true
	}
	if obj, ok := asObject(v); ok {
		if img, ok := imageValue(obj["image"]); ok {
			return img, true
		}
		return firstImage(obj["images"])
	}
	return firstImage(v)
}

func firstImage(v any) (any, bool) {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		if strs, ok := v.([]string); ok && len(strs) > 0 {
			return strs[0], true
		}
		return nil, false
	}
	return imageValue(list[0])
}

func imageValue(v any) (any, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case nil:
		return nil, false
	}
	if data, ok := asByteArray(v); ok {
		return data, true
	}
	return nil, false
}

// asByteArray accepts []byte or a JSON array of integers in 0..255.
func asByteArray(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		out := make([]byte, len(t))
		for i, e := range t {
			var n float64
			switch num := e.(type) {
			case float64:
				n = num
			case int:
				n = float64(num)
			default:
				return nil, false
			}
			if n < 0 || n > 255 || n != float64(int(n)) {
				return nil, false
			}
			out[i] = byte(n)
		}
		return out, true
	}
	return nil, false
}

// asObject returns maps directly and round-trips structs through JSON.
func asObject(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct && rv.Kind() != reflect.Map {
		return nil, false
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	var m map[string]any
	if err := json.Unmarshal(encoded, &m); err != nil {
		return nil, false
	}
	return m, true
}

var dataURLPattern = regexp.MustCompile(`(?s)^data:([^;,]+)(?:;[^;,]+)*;base64,(.*)$`)

// decodeImageString accepts a data URL or a bare base64 payload.
func decodeImageString(s string) (*model.ImageOutput, error) {
	s = strings.TrimSpace(s)
	contentType := defaultImageType
	payload := s
	if m := dataURLPattern.FindStringSubmatch(s); m != nil {
		contentType = mediaTypeOr(m[1])
		payload = m[2]
	}
	data, err := decodeBase64(payload)
	if err != nil {
		return nil, err
	}
	return &model.ImageOutput{Data: data, ContentType: contentType}, nil
}

func decodeBase64(payload string) ([]byte, error) {
	payload = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, payload)
	if payload == "" {
		return nil, ErrInvalidBase64Image
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(payload); err == nil && len(data) > 0 {
			return data, nil
		}
	}
	return nil, ErrInvalidBase64Image
}

func mediaTypeOr(contentType string) string {
	if contentType == "" {
		return defaultImageType
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt == "" {
		return defaultImageType
	}
	return mt
}

// snippetOf describes raw for logs without including decoded image data.
func snippetOf(raw any) string {
	switch v := raw.(type) {
	case string:
		return truncate(v, 48)
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return truncate("keys="+strings.Join(keys, ","), 48)
	case []byte:
		return fmt.Sprintf("%d bytes", len(v))
	case nil:
		return "nil"
	default:
		return fmt.Sprintf("%T", raw)
	}
}
