package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/uniedit/enhancer/internal/model"
	"github.com/uniedit/enhancer/internal/port/outbound"
)

// Schema selects the persisted layout of usage counters.
type Schema string

const (
	// SchemaLegacy stores one blob per owner and calendar period.
	SchemaLegacy Schema = "legacy"
	// SchemaRolling stores one blob per owner and scope with its own reset time.
	SchemaRolling Schema = "rolling"
)

// NewLedger returns the ledger implementation for schema.
func NewLedger(schema Schema, store outbound.KVStorePort, logger *zap.Logger) (outbound.QuotaLedgerPort, error) {
	switch schema {
	case SchemaLegacy, "":
		return NewLegacyLedger(store, logger), nil
	case SchemaRolling:
		return NewRollingLedger(store, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSchema, schema)
	}
}

// counter is the JSON value stored for a usage record.
type counter struct {
	Count   int64      `json:"count"`
	ResetAt *time.Time `json:"reset_at,omitempty"`
}

// counterStore reads and writes JSON counters on a KV store.
type counterStore struct {
	kv     outbound.KVStorePort
	logger *zap.Logger
	now    func() time.Time
}

func newCounterStore(kv outbound.KVStorePort, logger *zap.Logger) counterStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return counterStore{kv: kv, logger: logger, now: time.Now}
}

// read returns the counter at key. Missing keys read as zero and corrupt
// values are logged and treated as zero.
func (s counterStore) read(ctx context.Context, key string) (*counter, error) {
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, outbound.ErrKeyNotFound) {
		return &counter{}, nil
	}
	if err != nil {
		s.logger.Error("failed to read usage counter", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("read %s: %w", key, err)
	}

	var c counter
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		s.logger.Warn("ignoring corrupt usage counter", zap.String("key", key), zap.Error(err))
		return &counter{}, nil
	}
	return &c, nil
}

func (s counterStore) write(ctx context.Context, key string, c *counter, ttl time.Duration) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal counter: %w", err)
	}
	if err := s.kv.Put(ctx, key, string(data), ttl); err != nil {
		s.logger.Error("failed to write usage counter", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func validateOwner(owner model.Owner) error {
	if !owner.Type.Valid() || owner.ID == "" {
		return fmt.Errorf("%w: %s", ErrInvalidOwner, owner)
	}
	return nil
}

func nextUTCMidnight(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func nextUTCMonth(now time.Time) time.Time {
	y, m, _ := now.UTC().Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, time.UTC)
}

// ttlUntil returns a positive TTL ending at t.
func ttlUntil(now, t time.Time) time.Duration {
	ttl := t.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}
