package enhance

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
	"github.com/uniedit/enhancer/internal/utils/metrics"
)

// errUndersizedOutput is wrapped by the server error returned after the retry.
var errUndersizedOutput = errors.New("undersized provider output")

// RetryPolicy runs an adapter and retries exactly once when the result is
// smaller than MinBytes.
type RetryPolicy struct {
	MinBytes int
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

// NewRetryPolicy creates a retry policy.
func NewRetryPolicy(minBytes int, logger *zap.Logger, m *metrics.Metrics) *RetryPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryPolicy{MinBytes: minBytes, logger: logger, metrics: m}
}

// Run calls adapter once, and a second time if the first result is undersized.
// Adapter errors are returned unchanged.
func (p *RetryPolicy) Run(ctx context.Context, adapter outbound.ProviderAdapterPort, m *model.ModelDescriptor, input *model.ProviderInput) (*model.ImageOutput, error) {
	out, err := adapter.Run(ctx, m, input)
	if err != nil {
		return nil, err
	}
	if out.Size() >= p.MinBytes {
		return out, nil
	}

	p.logger.Warn("provider output undersized, retrying",
		zap.String("model", m.Slug),
		zap.Int("bytes", out.Size()),
		zap.Int("min_bytes", p.MinBytes),
	)
	p.metrics.RecordProviderRetry(m.Slug)

	out, err = adapter.Run(ctx, m, input)
	if err != nil {
		return nil, err
	}
	if out.Size() < p.MinBytes {
		return nil, apperrors.ServerError(
			fmt.Sprintf("enhanced image was unexpectedly small (%d bytes)", out.Size()),
			errUndersizedOutput,
		)
	}
	return out, nil
}
