package enhanceprovider

import (
	"context"
	"encoding/base64"
	"sort"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

// InProcessAdapter runs models through a synchronous inference binding.
type InProcessAdapter struct {
	binding    outbound.InferenceBindingPort
	normalizer *Normalizer
	logger     *zap.Logger
}

// NewInProcessAdapter creates an adapter over binding. A nil binding makes
// every call fail with ErrBindingNotConfigured.
func NewInProcessAdapter(binding outbound.InferenceBindingPort, normalizer *Normalizer, logger *zap.Logger) *InProcessAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if normalizer == nil {
		normalizer = NewNormalizer(logger)
	}
	return &InProcessAdapter{
		binding:    binding,
		normalizer: normalizer,
		logger:     logger.Named("inprocess"),
	}
}

// Kind returns the provider family.
func (a *InProcessAdapter) Kind() model.ProviderKind {
	return model.ProviderKindInProcess
}

// Run executes the model once and normalizes its output.
func (a *InProcessAdapter) Run(ctx context.Context, m *model.ModelDescriptor, input *model.ProviderInput) (*model.ImageOutput, error) {
	if a.binding == nil {
		return nil, ErrBindingNotConfigured
	}

	payload := buildPayload(m, input, base64.StdEncoding.EncodeToString(input.Image))

	raw, err := a.binding.Run(ctx, m.Identifier(), payload)
	if err != nil {
		a.logger.Error("inference binding failed",
			zap.String("model", m.Slug),
			zap.Strings("payload_keys", payloadKeys(payload)),
			zap.Error(err),
		)
		return nil, err
	}

	return a.normalizer.Normalize(raw)
}

// buildPayload merges the model defaults with the request knobs. image is the
// encoded image or a URL the provider can fetch.
func buildPayload(m *model.ModelDescriptor, input *model.ProviderInput, image string) map[string]any {
	payload := make(map[string]any, len(m.DefaultParams)+8)
	for k, v := range m.DefaultParams {
		payload[k] = v
	}
	payload["image"] = image

	if input.Prompt != "" {
		payload["prompt"] = input.Prompt
	}
	if input.NegativePrompt != "" {
		payload["negative_prompt"] = input.NegativePrompt
	}
	if input.Strength != nil {
		payload["strength"] = *input.Strength
	}
	if input.Guidance != nil {
		payload["guidance"] = *input.Guidance
	}
	if input.Steps != nil {
		payload["num_steps"] = *input.Steps
	}
	if input.Scale > 0 {
		payload["scale"] = input.Scale
	}
	if input.FaceEnhance {
		payload["face_enhance"] = true
	}
	return payload
}

func payloadKeys(payload map[string]any) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var _ outbound.ProviderAdapterPort = (*InProcessAdapter)(nil)
