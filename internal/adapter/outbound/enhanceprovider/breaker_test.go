package enhanceprovider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/enhancer/internal/model"
	apperrors "github.com/uniedit/enhancer/internal/utils/errors"
)

type stubAdapter struct {
	kind  model.ProviderKind
	err   error
	calls int
}

func (s *stubAdapter) Kind() model.ProviderKind { return s.kind }

func (s *stubAdapter) Run(ctx context.Context, m *model.ModelDescriptor, input *model.ProviderInput) (*model.ImageOutput, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &model.ImageOutput{Data: sampleImage, ContentType: "image/png"}, nil
}

func TestBreakerAdapter_TripsOnServerErrors(t *testing.T) {
	stub := &stubAdapter{kind: model.ProviderKindRemoteJob, err: errors.New("connection refused")}
	adapter := NewBreakerAdapter(stub, BreakerConfig{FailureThreshold: 3, Timeout: time.Minute}, nil)

	for i := 0; i < 3; i++ {
		_, err := adapter.Run(context.Background(), testDescriptor(), &model.ProviderInput{})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, adapter.State())

	_, err := adapter.Run(context.Background(), testDescriptor(), &model.ProviderInput{})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, 3, stub.calls)
	assert.Equal(t, apperrors.KindServerError, apperrors.KindOf(err))
}

func TestBreakerAdapter_IgnoresValidationErrors(t *testing.T) {
	stub := &stubAdapter{kind: model.ProviderKindRemoteJob, err: apperrors.ValidationError("enhancement failed: bad image")}
	adapter := NewBreakerAdapter(stub, BreakerConfig{FailureThreshold: 2}, nil)

	for i := 0; i < 5; i++ {
		_, err := adapter.Run(context.Background(), testDescriptor(), &model.ProviderInput{})
		assert.True(t, apperrors.IsValidation(err))
	}
	assert.Equal(t, gobreaker.StateClosed, adapter.State())
	assert.Equal(t, 5, stub.calls)
}

func TestRegistry(t *testing.T) {
	inproc := &stubAdapter{kind: model.ProviderKindInProcess}
	registry := NewRegistry(inproc)

	got, err := registry.Get(model.ProviderKindInProcess)
	require.NoError(t, err)
	assert.Same(t, inproc, got)

	_, err = registry.Get(model.ProviderKindRemoteJob)
	assert.ErrorIs(t, err, ErrBindingNotConfigured)
}
