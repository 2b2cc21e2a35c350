package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/enhancer/internal/adapter/outbound/memory"
	"github.com/uniedit/enhancer/internal/model"
)

var (
	guest = model.Owner{Type: model.OwnerTypeGuest, ID: "g-1"}
	user  = model.Owner{Type: model.OwnerTypeUser, ID: "u-1"}
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func TestNewLedger(t *testing.T) {
	kv := memory.NewKVStore()

	l, err := NewLedger(SchemaLegacy, kv, nil)
	require.NoError(t, err)
	assert.IsType(t, &LegacyLedger{}, l)

	l, err = NewLedger(SchemaRolling, kv, nil)
	require.NoError(t, err)
	assert.IsType(t, &RollingLedger{}, l)

	_, err = NewLedger("weekly", kv, nil)
	assert.ErrorIs(t, err, ErrUnknownSchema)
}

func TestLegacyLedger(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Date(2026, 5, 31, 22, 0, 0, 0, time.UTC)}
	kv := memory.NewKVStore().WithClock(clock.Now)
	ledger := NewLegacyLedger(kv, nil)
	ledger.store.now = clock.Now

	rec, err := ledger.Daily(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Count)

	rec, err = ledger.IncrementDaily(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count)
	assert.Equal(t, "usage:guest:g-1:d:2026-05-31", rec.PeriodKey)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), *rec.ResetAt)

	raw, err := kv.Get(ctx, "usage:guest:g-1:d:2026-05-31")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":1}`, raw)

	ttl, _ := kv.TTL("usage:guest:g-1:d:2026-05-31")
	assert.Equal(t, 2*time.Hour, ttl)

	t.Run("monthly never expires", func(t *testing.T) {
		rec, err := ledger.IncrementMonthly(ctx, user, 15)
		require.NoError(t, err)
		assert.Equal(t, int64(15), rec.Count)

		ttl, ok := kv.TTL("usage:user:u-1:m:2026-05")
		assert.True(t, ok)
		assert.Zero(t, ttl)

		rec, err = ledger.IncrementMonthly(ctx, user, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(20), rec.Count)
	})

	t.Run("next day starts a new period", func(t *testing.T) {
		clock.now = time.Date(2026, 6, 1, 0, 30, 0, 0, time.UTC)

		rec, err := ledger.Daily(ctx, guest)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rec.Count)

		rec, err = ledger.Monthly(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rec.Count)
	})

	t.Run("rejects incomplete owner", func(t *testing.T) {
		_, err := ledger.Daily(ctx, model.Owner{Type: model.OwnerTypeUser})
		assert.ErrorIs(t, err, ErrInvalidOwner)
	})
}

func TestRollingLedger(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 5, 31, 22, 0, 0, 0, time.UTC)
	clock := &testClock{now: start}
	kv := memory.NewKVStore().WithClock(clock.Now)
	ledger := NewRollingLedger(kv, nil)
	ledger.store.now = clock.Now

	rec, err := ledger.Daily(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Count)
	assert.Nil(t, rec.ResetAt)

	rec, err = ledger.IncrementDaily(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Count)
	require.NotNil(t, rec.ResetAt)
	assert.Equal(t, start.Add(24*time.Hour), *rec.ResetAt)

	// The window is anchored at first use, not at midnight.
	clock.now = start.Add(3 * time.Hour)
	rec, err = ledger.IncrementDaily(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Count)
	assert.Equal(t, start.Add(24*time.Hour), *rec.ResetAt)

	raw, err := kv.Get(ctx, "usage:rolling:daily:guest:g-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2,"reset_at":"2026-06-01T22:00:00Z"}`, raw)

	clock.now = start.Add(25 * time.Hour)
	rec, err = ledger.Daily(ctx, guest)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Count)

	t.Run("monthly window", func(t *testing.T) {
		clock.now = start
		rec, err := ledger.IncrementMonthly(ctx, user, 10)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 7, 1, 22, 0, 0, 0, time.UTC), *rec.ResetAt)

		ttl, ok := kv.TTL("usage:rolling:monthly:user:u-1")
		assert.True(t, ok)
		assert.Zero(t, ttl)

		clock.now = time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)
		rec, err = ledger.Monthly(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rec.Count)
	})

	t.Run("blob without reset time is kept", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "usage:rolling:monthly:user:u-2", `{"count":7}`, 0))
		owner := model.Owner{Type: model.OwnerTypeUser, ID: "u-2"}

		rec, err := ledger.Monthly(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, int64(7), rec.Count)

		rec, err = ledger.IncrementMonthly(ctx, owner, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(10), rec.Count)
		assert.Nil(t, rec.ResetAt)
	})

	t.Run("corrupt value reads as zero", func(t *testing.T) {
		require.NoError(t, kv.Put(ctx, "usage:rolling:daily:user:u-3", `not-json`, 0))
		rec, err := ledger.Daily(ctx, model.Owner{Type: model.OwnerTypeUser, ID: "u-3"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), rec.Count)
	})
}

func TestCredits(t *testing.T) {
	ctx := context.Background()
	kv := memory.NewKVStore()
	credits := NewCredits(kv, nil)

	bal, err := credits.Balance(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Tenths)

	require.NoError(t, credits.Set(ctx, "u-1", 25))

	bal, err = credits.ConsumeTenths(ctx, "u-1", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(18), bal.Tenths)
	assert.InDelta(t, 1.8, bal.Credits(), 1e-9)

	raw, err := kv.Get(ctx, "credits:u-1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tenths":18}`, raw)

	bal, err = credits.ConsumeTenths(ctx, "u-1", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal.Tenths)

	_, err = credits.ConsumeTenths(ctx, "u-1", -1)
	assert.Error(t, err)
}
