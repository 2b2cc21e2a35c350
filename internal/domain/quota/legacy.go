package quota

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

// LegacyLedger keys counters by owner and calendar period:
//
//	usage:{ownerType}:{ownerId}:d:{YYYY-MM-DD}
//	usage:{ownerType}:{ownerId}:m:{YYYY-MM}
//
// Daily keys expire at the next UTC midnight. Monthly keys never expire.
type LegacyLedger struct {
	store counterStore
}

// NewLegacyLedger creates a ledger on the legacy key layout.
func NewLegacyLedger(kv outbound.KVStorePort, logger *zap.Logger) *LegacyLedger {
	return &LegacyLedger{store: newCounterStore(kv, logger)}
}

func legacyDailyKey(owner model.Owner, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s:d:%s", owner.Type, owner.ID, now.UTC().Format("2006-01-02"))
}

func legacyMonthlyKey(owner model.Owner, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s:m:%s", owner.Type, owner.ID, now.UTC().Format("2006-01"))
}

// Daily returns today's generation count.
func (l *LegacyLedger) Daily(ctx context.Context, owner model.Owner) (*model.UsageRecord, error) {
	now := l.store.now()
	return l.get(ctx, owner, legacyDailyKey(owner, now), nextUTCMidnight(now))
}

// Monthly returns this month's plan usage in tenths.
func (l *LegacyLedger) Monthly(ctx context.Context, owner model.Owner) (*model.UsageRecord, error) {
	now := l.store.now()
	return l.get(ctx, owner, legacyMonthlyKey(owner, now), nextUTCMonth(now))
}

// IncrementDaily adds one generation to today's count.
func (l *LegacyLedger) IncrementDaily(ctx context.Context, owner model.Owner) (*model.UsageRecord, error) {
	now := l.store.now()
	reset := nextUTCMidnight(now)
	return l.add(ctx, owner, legacyDailyKey(owner, now), 1, reset, ttlUntil(now, reset))
}

// IncrementMonthly adds tenths to this month's plan usage.
func (l *LegacyLedger) IncrementMonthly(ctx context.Context, owner model.Owner, tenths int64) (*model.UsageRecord, error) {
	now := l.store.now()
	return l.add(ctx, owner, legacyMonthlyKey(owner, now), tenths, nextUTCMonth(now), 0)
}

func (l *LegacyLedger) get(ctx context.Context, owner model.Owner, key string, reset time.Time) (*model.UsageRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	c, err := l.store.read(ctx, key)
	if err != nil {
		return nil, err
	}
	return legacyRecord(owner, key, c.Count, reset), nil
}

func (l *LegacyLedger) add(ctx context.Context, owner model.Owner, key string, delta int64, reset time.Time, ttl time.Duration) (*model.UsageRecord, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}
	c, err := l.store.read(ctx, key)
	if err != nil {
		return nil, err
	}
	next := &counter{Count: c.Count + delta}
	if err := l.store.write(ctx, key, next, ttl); err != nil {
		return nil, err
	}
	return legacyRecord(owner, key, next.Count, reset), nil
}

func legacyRecord(owner model.Owner, key string, count int64, reset time.Time) *model.UsageRecord {
	return &model.UsageRecord{
		OwnerType: owner.Type,
		OwnerID:   owner.ID,
		PeriodKey: key,
		Count:     count,
		ResetAt:   &reset,
	}
}

var _ outbound.QuotaLedgerPort = (*LegacyLedger)(nil)
