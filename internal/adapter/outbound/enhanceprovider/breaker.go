package enhanceprovider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

// BreakerConfig configures the circuit breaker around an adapter.
type BreakerConfig struct {
	FailureThreshold uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// ErrProviderUnavailable is returned while the breaker is open.
var ErrProviderUnavailable = errors.New("provider temporarily unavailable")

// BreakerAdapter wraps an adapter with a circuit breaker. Only server-class
// failures count against the breaker.
type BreakerAdapter struct {
	next    outbound.ProviderAdapterPort
	breaker *gobreaker.CircuitBreaker[*model.ImageOutput]
}

// NewBreakerAdapter wraps next.
func NewBreakerAdapter(next outbound.ProviderAdapterPort, cfg BreakerConfig, logger *zap.Logger) *BreakerAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        string(next.Kind()),
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || apperrors.KindOf(err) != apperrors.KindServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("provider circuit breaker state changed",
				zap.String("provider", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &BreakerAdapter{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*model.ImageOutput](settings),
	}
}

// Kind returns the wrapped adapter's provider family.
func (a *BreakerAdapter) Kind() model.ProviderKind {
	return a.next.Kind()
}

// Run executes the wrapped adapter under the breaker.
func (a *BreakerAdapter) Run(ctx context.Context, m *model.ModelDescriptor, input *model.ProviderInput) (*model.ImageOutput, error) {
	out, err := a.breaker.Execute(func() (*model.ImageOutput, error) {
		return a.next.Run(ctx, m, input)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s: %v", ErrProviderUnavailable, a.next.Kind(), err)
	}
	return out, err
}

// State returns the breaker state.
func (a *BreakerAdapter) State() gobreaker.State {
	return a.breaker.State()
}

var _ outbound.ProviderAdapterPort = (*BreakerAdapter)(nil)
