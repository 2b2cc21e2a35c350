package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

// RollingLedger keeps one counter per owner and scope at
// usage:rolling:{scope}:{ownerType}:{ownerId}. A window starts on first use
// and lasts 24 hours (daily) or one month (monthly). Blobs without a reset
// time never roll over.
type RollingLedger struct {
	store counterStore
}

// NewRollingLedger creates a ledger on the rolling-window key layout.
func NewRollingLedger(kv outbound.KVStorePort, logger *zap.Logger) *RollingLedger {
	return &RollingLedger{store: newCounterStore(kv, logger)}
}

func rollingKey(scope model.QuotaScope, owner model.Owner) string {
	return fmt.Sprintf("usage:rolling:%s:%s:%s", scope, owner.Type, owner.ID)
}

// Daily returns the count in the current 24-hour window.
func (l *RollingLedger) Daily(ctx context.Context, owner model.Owner) (*model.UsageRecord, error) {
	return l.get(ctx, owner, model.QuotaScopeDaily)
}

// Monthly returns the plan usage in tenths in the current monthly window.
func (l *RollingLedger) Monthly(ctx context.Context, owner model.Owner) (*model.UsageRecord, error) {
	return l.get(ctx, owner, model.QuotaScopeMonthly)
}

// IncrementDaily adds one generation, opening a new window when needed.
func (l *RollingLedger) IncrementDaily(ctx context.Context, owner model.Owner) (*model.UsageRecord, error) {
	return l.add(ctx, owner, model.QuotaScopeDaily, 1)
}

// IncrementMonthly adds tenths, opening a new window when needed.
func (l *RollingLedger) IncrementMonthly(ctx context.Context, owner model.Owner, tenths int64) (*model.UsageRecord, error) {
	return l.add(ctx, owner, model.QuotaScopeMonthly, tenths)
}

// current returns the live counter for key; an expired window reads as empty.
func (l *RollingLedger) current(ctx context.Context, key string, now time.Time) (*counter, error) {
	c, err := l.store.read(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.ResetAt != nil && !now.Before(*c.ResetAt) {
		return &counter{}, nil
	}
	return c, nil
}

func (l *RollingLedger) get(ctx context.Context, owner model.Owner, scope model.QuotaScope) (*model.UsageRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	key := rollingKey(scope, owner)
	c, err := l.current(ctx, key, l.store.now())
	if err != nil {
		return nil, err
	}
	return rollingRecord(owner, key, c), nil
}

func (l *RollingLedger) add(ctx context.Context, owner model.Owner, scope model.QuotaScope, delta int64) (*model.UsageRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	key := rollingKey(scope, owner)
	now := l.store.now()

	c, err := l.current(ctx, key, now)
	if err != nil {
		return nil, err
	}

	next := &counter{Count: c.Count + delta, ResetAt: c.ResetAt}
	if c.Count == 0 && c.ResetAt == nil {
		reset := windowEnd(scope, now)
		next.ResetAt = &reset
	}

	var ttl time.Duration
	if scope == model.QuotaScopeDaily && next.ResetAt != nil {
		ttl = ttlUntil(now, *next.ResetAt)
	}
	if err := l.store.write(ctx, key, next, ttl); err != nil {
		return nil, err
	}
	return rollingRecord(owner, key, next), nil
}

func windowEnd(scope model.QuotaScope, now time.Time) time.Time {
	now = now.UTC()
	if scope == model.QuotaScopeMonthly {
		return now.AddDate(0, 1, 0)
	}
	return now.Add(24 * time.Hour)
}

func rollingRecord(owner model.Owner, key string, c *counter) *model.UsageRecord {
	return &model.UsageRecord{
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
		PeriodKey: key,
		Count:     c.Count,
		ResetAt:   c.ResetAt,
	}
}

var _ outbound.QuotaLedgerPort = (*RollingLedger)(nil)
