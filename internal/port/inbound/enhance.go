package inbound

import (
	"context"

	"github.com/uniedit/enhancer/internal/model"
)

// EnhanceDomain is the caller-facing image enhancement operation.
type EnhanceDomain interface {
	Generate(ctx context.Context, req *model.GenerationRequest) (*model.GenerationResult, error)
}
