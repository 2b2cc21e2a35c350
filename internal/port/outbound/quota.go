package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/uniedit/enhancer/internal/model"
)

// ErrKeyNotFound is returned by KVStorePort.Get for missing or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// KVStorePort is the quota and credit store. Values are opaque strings.
type KVStorePort interface {
	// Get returns the value for key or ErrKeyNotFound.
	Get(ctx context.Context, key string) (string, error)

	// Put stores value under key. A zero ttl never expires.
	Put(ctx context.Context, key, value string, ttl time.Duration) error
}

// QuotaLedgerPort tracks daily generation counts and monthly credit usage.
type QuotaLedgerPort interface {
	// Daily returns the owner's generation count in the current daily window.
	Daily(ctx context.Context, owner model.Owner) (*model.UsageRecord, error)

	// Monthly returns the owner's plan usage in tenths for the current month.
	Monthly(ctx context.Context, owner model.Owner) (*model.UsageRecord, error)

	// IncrementDaily adds one generation to the daily window.
	IncrementDaily(ctx context.Context, owner model.Owner) (*model.UsageRecord, error)

	// IncrementMonthly adds tenths to the monthly plan usage.
	IncrementMonthly(ctx context.Context, owner model.Owner, tenths int64) (*model.UsageRecord, error)
}

// CreditsPort reads and spends prepaid credit balances.
type CreditsPort interface {
	// Balance returns the owner's balance. Missing balances read as zero.
	Balance(ctx context.Context, ownerID string) (*model.CreditsBalance, error)

	// ConsumeTenths deducts tenths and returns the new balance.
	ConsumeTenths(ctx context.Context, ownerID string, tenths int64) (*model.CreditsBalance, error)
}
