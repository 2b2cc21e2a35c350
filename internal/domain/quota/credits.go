package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

// Credits stores prepaid balances at credits:{ownerId} as {"tenths": n}.
type Credits struct {
	kv     outbound.KVStorePort
	logger *zap.Logger
}

// NewCredits creates a credit balance store.
func NewCredits(kv outbound.KVStorePort, logger *zap.Logger) *Credits {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Credits{kv: kv, logger: logger}
}

type creditsValue struct {
	Tenths int64 `json:"tenths"`
}

func creditsKey(ownerID string) string {
	return "credits:" + ownerID
}

// Balance returns the owner's balance. Missing balances read as zero.
func (c *Credits) Balance(ctx context.Context, ownerID string) (*model.CreditsBalance, error) {
	raw, err := c.kv.Get(ctx, creditsKey(ownerID))
	if errors.Is(err, outbound.ErrKeyNotFound) {
		return &model.CreditsBalance{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credits: %w", err)
	}

	var v creditsValue
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.logger.Warn("ignoring corrupt credits balance", zap.String("owner_id", ownerID), zap.Error(err))
		return &model.CreditsBalance{OwnerID: ownerID}, nil
	}
	return &model.CreditsBalance{OwnerID: ownerID, Tenths: v.Tenths}, nil
}

// ConsumeTenths deducts tenths from the balance. The balance never goes below
// zero.
func (c *Credits) ConsumeTenths(ctx context.Context, ownerID string, tenths int64) (*model.CreditsBalance, error) {
	if tenths < 0 {
		return nil, fmt.Errorf("consume credits: negative amount %d", tenths)
	}
	balance, err := c.Balance(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	balance.Tenths -= tenths
	if balance.Tenths < 0 {
		c.logger.Warn("credits balance overspent", zap.String("owner_id", ownerID), zap.Int64("deficit_tenths", -balance.Tenths))
		balance.Tenths = 0
	}

	if err := c.Set(ctx, ownerID, balance.Tenths); err != nil {
		return nil, err
	}
	return balance, nil
}

// Set overwrites the balance. Used by top-up flows and tests.
func (c *Credits) Set(ctx context.Context, ownerID string, tenths int64) error {
	data, err := json.Marshal(creditsValue{Tenths: tenths})
	if err != nil {
		return fmt.Errorf("marshal credits: %w", err)
	}
	if err := c.kv.Put(ctx, creditsKey(ownerID), string(data), 0); err != nil {
		return fmt.Errorf("write credits: %w", err)
	}
	return nil
}

var _ outbound.CreditsPort = (*Credits)(nil)
