package enhance

import (
	"time"

	"github.com/uniedit/enhancer/internal/model"
)

// Config holds enhancement domain configuration. It is built once by the
// composition root; the domain never reads the environment.
type Config struct {
	// MinOutputBytes is the size below which a provider result is retried once.
	MinOutputBytes int

	// MaxUploadBytes caps the uploaded file size.
	MaxUploadBytes int64

	// AllowedContentTypes lists the sniffed MIME types accepted for upload.
	AllowedContentTypes []string

	// Default limits per owner type. Negative values mean unlimited.
	GuestDailyLimit   int
	UserDailyLimit    int
	GuestMonthlyLimit float64
	UserMonthlyLimit  float64
	MaxUpscale        int
	AllowFaceEnhance  bool
	MaxPromptLength   int

	// EnabledProviders lists the provider families that may be dispatched to.
	EnabledProviders map[model.ProviderKind]bool

	// PublicURLTemplate builds public object URLs from {origin} and {key}.
	PublicURLTemplate string

	// DispatchTimeout bounds one provider dispatch including the retry.
	DispatchTimeout time.Duration
}

// DefaultConfig returns default enhancement configuration.
func DefaultConfig() *Config {
	return &Config{
		MinOutputBytes:      15 * 1024,
		MaxUploadBytes:      10 << 20,
		AllowedContentTypes: []string{"image/png", "image/jpeg", "image/webp"},
		GuestDailyLimit:     5,
		UserDailyLimit:      20,
		GuestMonthlyLimit:   model.Unlimited,
		UserMonthlyLimit:    model.Unlimited,
		MaxUpscale:          4,
		AllowFaceEnhance:    true,
		MaxPromptLength:     1000,
		EnabledProviders: map[model.ProviderKind]bool{
			model.ProviderKindInProcess: true,
			model.ProviderKindRemoteJob: true,
		},
		PublicURLTemplate: "{origin}/files/{key}",
		DispatchTimeout:   150 * time.Second,
	}
}

func (c *Config) providerEnabled(kind model.ProviderKind) bool {
	return c.EnabledProviders[kind]
}
