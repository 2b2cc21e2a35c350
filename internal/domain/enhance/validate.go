package enhance

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	"github.com/uniedit/enhancer/internal/model"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

// validated is a request that passed validation, with resolved options.
type validated struct {
	model       *model.ModelDescriptor
	contentType string
	extension   string
	scale       int
	faceEnhance bool
}

// validate resolves the model and rejects unsupported options and uploads.
// It performs no I/O.
func (d *Domain) validate(req *model.GenerationRequest) (*validated, error) {
	if !req.Owner.Type.Valid() || req.Owner.ID == "" {
		return nil, apperrors.ValidationError("owner is required")
	}

	m, ok := d.catalog.Get(req.ModelSlug)
	if !ok {
		return nil, apperrors.ValidationError(fmt.Sprintf("unknown model: %s", req.ModelSlug))
	}
	if !d.config.providerEnabled(m.Provider) {
		return nil, apperrors.Forbidden(fmt.Sprintf("provider %s is disabled", m.Provider))
	}

	v := &validated{model: m}

	if req.Scale != nil {
		scale := *req.Scale
		if !m.SupportsScale {
			return nil, apperrors.ValidationError(fmt.Sprintf("model %s does not support scale", m.Slug))
		}
		if scale != 2 && scale != 4 {
			return nil, apperrors.ValidationError("scale must be 2 or 4")
		}
		if m.MaxScale > 0 && scale > m.MaxScale {
			return nil, apperrors.ValidationError(fmt.Sprintf("model %s supports scale up to %d", m.Slug, m.MaxScale))
		}
		if maxUpscale := d.maxUpscale(req); scale > maxUpscale {
			return nil, apperrors.ValidationError(fmt.Sprintf("scale is limited to %d", maxUpscale))
		}
		v.scale = scale
	}

	if req.FaceEnhance != nil && *req.FaceEnhance {
		if !m.SupportsFaceEnhance {
			return nil, apperrors.ValidationError(fmt.Sprintf("model %s does not support face enhancement", m.Slug))
		}
		if !d.allowFaceEnhance(req) {
			return nil, apperrors.ValidationError("face enhancement is not available")
		}
		v.faceEnhance = true
	}

	if err := d.validatePromptOptions(m, req); err != nil {
		return nil, err
	}

	if len(req.File.Data) == 0 {
		return nil, apperrors.ValidationError("file is required")
	}
	if d.config.MaxUploadBytes > 0 && int64(len(req.File.Data)) > d.config.MaxUploadBytes {
		return nil, apperrors.ValidationError(fmt.Sprintf("file exceeds %d bytes", d.config.MaxUploadBytes))
	}

	// The declared type is ignored; only the sniffed type counts.
	detected := mimetype.Detect(req.File.Data)
	allowed := false
	for _, ct := range d.config.AllowedContentTypes {
		if detected.Is(ct) {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.ValidationError(fmt.Sprintf("unsupported content type: %s", detected.String()))
	}
	v.contentType = detected.String()
	v.extension = detected.Extension()

	return v, nil
}

func (d *Domain) validatePromptOptions(m *model.ModelDescriptor, req *model.GenerationRequest) error {
	hasPromptOptions := req.Prompt != "" || req.NegativePrompt != "" ||
		req.Strength != nil || req.Guidance != nil || req.Steps != nil
	if !hasPromptOptions {
		return nil
	}
	if !m.SupportsPrompt {
		return apperrors.ValidationError(fmt.Sprintf("model %s does not accept prompt options", m.Slug))
	}
	if d.config.MaxPromptLength > 0 && (len(req.Prompt) > d.config.MaxPromptLength || len(req.NegativePrompt) > d.config.MaxPromptLength) {
		return apperrors.ValidationError(fmt.Sprintf("prompt exceeds %d characters", d.config.MaxPromptLength))
	}
	if req.Strength != nil && (*req.Strength < 0 || *req.Strength > 1) {
		return apperrors.ValidationError("strength must be between 0 and 1")
	}
	if req.Guidance != nil && (*req.Guidance < 0 || *req.Guidance > 30) {
		return apperrors.ValidationError("guidance must be between 0 and 30")
	}
	if req.Steps != nil && (*req.Steps < 1 || *req.Steps > 50) {
		return apperrors.ValidationError("steps must be between 1 and 50")
	}
	return nil
}

func (d *Domain) maxUpscale(req *model.GenerationRequest) int {
	if req.MaxUpscaleOverride != nil {
		return *req.MaxUpscaleOverride
	}
	return d.config.MaxUpscale
}

func (d *Domain) allowFaceEnhance(req *model.GenerationRequest) bool {
	if req.AllowFaceEnhanceOverride != nil {
		return *req.AllowFaceEnhanceOverride
	}
	return d.config.AllowFaceEnhance
}

func (d *Domain) dailyLimit(req *model.GenerationRequest) int {
	if req.LimitOverride != nil {
		return *req.LimitOverride
	}
	if req.Owner.IsUser() {
		return d.config.UserDailyLimit
	}
	return d.config.GuestDailyLimit
}

func (d *Domain) monthlyLimit(req *model.GenerationRequest) float64 {
	if req.MonthlyLimitOverride != nil {
		return *req.MonthlyLimitOverride
	}
	if req.Owner.IsUser() {
		return d.config.UserMonthlyLimit
	}
	return d.config.GuestMonthlyLimit
}
