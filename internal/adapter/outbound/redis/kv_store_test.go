package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/enhancer/internal/port/outbound"
)

// fakeServer answers GET and SET from a map without dialing.
type fakeServer struct {
	data map[string]string
	ttls map[string]time.Duration
}

func (f *fakeServer) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, net.ErrClosed
	}
}

func (f *fakeServer) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			v, ok := f.data[args[1].(string)]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(v)
		case *redis.StatusCmd:
			key := args[1].(string)
			f.data[key] = args[2].(string)
			f.ttls[key] = 0
			if len(args) == 5 {
				switch ex := args[4].(type) {
				case int64:
					if args[3] == "px" {
						f.ttls[key] = time.Duration(ex) * time.Millisecond
					} else {
						f.ttls[key] = time.Duration(ex) * time.Second
					}
				}
			}
			c.SetVal("OK")
		}
		return nil
	}
}

func (f *fakeServer) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newFakeClient() (*redis.Client, *fakeServer) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	fake := &fakeServer{data: map[string]string{}, ttls: map[string]time.Duration{}}
	client.AddHook(fake)
	return client, fake
}

func TestKVStore_GetMissing(t *testing.T) {
	client, _ := newFakeClient()
	store := NewKVStore(client, "enh:")

	_, err := store.Get(context.Background(), "usage:user:u1:d:2026-01-01")
	assert.ErrorIs(t, err, outbound.ErrKeyNotFound)
}

func TestKVStore_PutGet(t *testing.T) {
	client, fake := newFakeClient()
	store := NewKVStore(client, "enh:")
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "credits:u1", `{"tenths":25}`, 0))
	require.NoError(t, store.Put(ctx, "usage:guest:g1:d:2026-01-01", `{"count":1}`, 90*time.Second))

	v, err := store.Get(ctx, "credits:u1")
	require.NoError(t, err)
	assert.Equal(t, `{"tenths":25}`, v)

	assert.Contains(t, fake.data, "enh:credits:u1")
	assert.Equal(t, time.Duration(0), fake.ttls["enh:credits:u1"])
	assert.Equal(t, 90*time.Second, fake.ttls["enh:usage:guest:g1:d:2026-01-01"])
}
