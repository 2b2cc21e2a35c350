package enhanceprovider

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Adapter errors. All of them are server-class for callers.
var (
	ErrUnsupportedOutput    = errors.New("unsupported provider output")
	ErrInvalidBase64Image   = errors.New("invalid base64 image")
	ErrBindingNotConfigured = errors.New("inference binding not configured")
	ErrJobIncomplete        = errors.New("provider job did not complete")
	ErrOutputTooLarge       = errors.New("provider output too large")
)

const maxSnippetLen = 200

// ProviderError is a non-2xx response from a provider endpoint. Snippet holds a
// truncated response body and is only meant for logs.
type ProviderError struct {
	Provider string
	Status   int
	Snippet  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s request failed with status %d", e.Provider, e.Status)
}

// IsNotFound reports whether err is a provider 404.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Status == 404
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
