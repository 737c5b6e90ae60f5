package cache

import (
	"context"
	"sync"
	"testing"

	"food-budget/internal/core/nutrition"
	"food-budget/internal/infrastructure/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *nutrition.Record {
	return nutrition.NewRecord(map[nutrition.Nutrient]float64{
		nutrition.Calories: 200,
		nutrition.Protein:  12.5,
	})
}

func newTestRedis(t *testing.T, namespace string) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return newRedisStore(client, namespace), mr
}

func stores(t *testing.T) map[string]nutrition.Cache {
	r, _ := newTestRedis(t, "")
	return map[string]nutrition.Cache{
		"memory": NewMemoryStore(),
		"redis":  r,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := nutrition.ForBarcode("5701234567899")

			_, hit := s.Get(ctx, key)
			assert.False(t, hit)

			require.NoError(t, s.Put(ctx, key, sampleRecord()))
			entry, hit := s.Get(ctx, key)
			require.True(t, hit)
			require.False(t, entry.Negative())
			kcal, ok := entry.Record.Get(nutrition.Calories)
			assert.True(t, ok)
			assert.Equal(t, 200.0, kcal)
			_, ok = entry.Record.Get(nutrition.Fiber)
			assert.False(t, ok)
		})
	}
}

func TestStoreNegativeEntry(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := nutrition.ForName("unobtainium")
			require.NoError(t, s.Put(ctx, key, nil))

			entry, hit := s.Get(ctx, key)
			assert.True(t, hit)
			assert.True(t, entry.Negative())
		})
	}
}

func TestStoreKeyDomainsAreDistinct(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.Put(ctx, nutrition.ForBarcode("12345670"), sampleRecord()))

			_, hit := s.Get(ctx, nutrition.LookupKey{Kind: nutrition.NameKey, Value: "12345670"})
			assert.False(t, hit)
		})
	}
}

func TestStoreLastWriterWins(t *testing.T) {
	ctx := context.Background()
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			key := nutrition.ForName("milk")
			require.NoError(t, s.Put(ctx, key, nil))
			require.NoError(t, s.Put(ctx, key, sampleRecord()))

			entry, hit := s.Get(ctx, key)
			require.True(t, hit)
			assert.False(t, entry.Negative())
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := nutrition.ForName("oats")
	rec := sampleRecord()
	require.NoError(t, s.Put(ctx, key, rec))

	*rec.Calories = 999
	entry, _ := s.Get(ctx, key)
	*entry.Record.Protein = 0

	again, _ := s.Get(ctx, key)
	assert.Equal(t, 200.0, *again.Record.Calories)
	assert.Equal(t, 12.5, *again.Record.Protein)
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	key := nutrition.ForName("rice")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_ = s.Put(ctx, key, sampleRecord())
			} else {
				s.Get(ctx, key)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, s.Len())
	stats := s.GetStats()
	assert.Equal(t, int64(25), stats["writes"])
}

func TestRedisStoreNamespaces(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	a := newRedisStore(client, "")
	b := newRedisStore(client, "")
	assert.NotEqual(t, a.Namespace(), b.Namespace())

	key := nutrition.ForBarcode("96385074")
	require.NoError(t, a.Put(ctx, key, sampleRecord()))
	_, hit := b.Get(ctx, key)
	assert.False(t, hit, "default namespaces are per process")

	shared1 := newRedisStore(client, "shared")
	shared2 := newRedisStore(client, "shared")
	require.NoError(t, shared1.Put(ctx, key, sampleRecord()))
	_, hit = shared2.Get(ctx, key)
	assert.True(t, hit)

	assert.False(t, mr.Exists("nutrition:shared:barcode:00000000"))
	assert.True(t, mr.Exists("nutrition:shared:barcode:96385074"))
	assert.Zero(t, mr.TTL("nutrition:shared:barcode:96385074"))
}

func TestRedisStoreCorruptValueIsMiss(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestRedis(t, "ns")
	require.NoError(t, mr.Set("nutrition:ns:name:bread", "{not json"))

	_, hit := s.Get(ctx, nutrition.ForName("bread"))
	assert.False(t, hit)
	assert.Equal(t, int64(1), s.GetStats()["errors"])
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	b, err := New(ctx, config.CacheConfig{Backend: "memory"})
	require.NoError(t, err)
	_, ok := b.(*MemoryStore)
	assert.True(t, ok)

	mr := miniredis.RunT(t)
	b, err = New(ctx, config.CacheConfig{Backend: "redis", Redis: config.RedisConfig{Addr: mr.Addr(), Namespace: "test"}})
	require.NoError(t, err)
	defer b.Close()
	rs, ok := b.(*RedisStore)
	require.True(t, ok)
	assert.Equal(t, "test", rs.Namespace())

	_, err = New(ctx, config.CacheConfig{Backend: "memcached"})
	assert.Error(t, err)
}
