package stats

import (
	"context"
	"io"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventpublisher/internal/domain"
)

type countingGateway struct {
	queries int
	hits    int
	result  []domain.ViewStats
}

func (g *countingGateway) RecordHit(ctx context.Context, hit domain.Hit) error {
	g.hits++
	return nil
}

func (g *countingGateway) QueryHits(ctx context.Context, q domain.StatsQuery) ([]domain.ViewStats, error) {
	g.queries++
	return g.result, nil
}

func TestCacheKey(t *testing.T) {
	start := time.Unix(0, 0)
	a := cacheKey(domain.StatsQuery{Start: start, URIs: []string{"/events/b", "/events/a"}, Unique: true})
	b := cacheKey(domain.StatsQuery{Start: start, End: time.Now(), URIs: []string{"/events/a", "/events/b"}, Unique: true})
	assert.Equal(t, a, b, "uri order and end must not change the key")
	assert.Contains(t, a, cacheKeyPrefix)

	c := cacheKey(domain.StatsQuery{Start: start, URIs: []string{"/events/a", "/events/b"}, Unique: false})
	assert.NotEqual(t, a, c)
}

func TestCachedGateway_RedisDownFallsThrough(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	next := &countingGateway{result: []domain.ViewStats{{App: "main", URI: "/events/a", Hits: 2}}}
	g := NewCachedGateway(next, client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	stats, err := g.QueryHits(context.Background(), domain.StatsQuery{URIs: []string{"/events/a"}})
	require.NoError(t, err)
	assert.Equal(t, next.result, stats)
	assert.Equal(t, 1, next.queries)

	require.NoError(t, g.RecordHit(context.Background(), domain.Hit{}))
	assert.Equal(t, 1, next.hits)
}

// silentListener accepts connections and never answers on them.
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	})
	return ln.Addr().String()
}

func TestCachedGateway_HungRedisHonoursContextDeadline(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:                  silentListener(t),
		MaxRetries:            -1,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ContextTimeoutEnabled: true,
	})
	defer client.Close()

	next := &countingGateway{result: []domain.ViewStats{{App: "main", URI: "/events/a", Hits: 7}}}
	g := NewCachedGateway(next, client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	started := time.Now()
	stats, err := g.QueryHits(ctx, domain.StatsQuery{URIs: []string{"/events/a"}})

	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second, "a silent redis must not outlast the caller deadline")
	assert.Equal(t, next.result, stats)
	assert.Equal(t, 1, next.queries)
}

func TestCachedGateway_HungRedisBoundedByReadTimeout(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:                  silentListener(t),
		MaxRetries:            -1,
		ReadTimeout:           100 * time.Millisecond,
		WriteTimeout:          100 * time.Millisecond,
		ContextTimeoutEnabled: true,
	})
	defer client.Close()

	next := &countingGateway{result: []domain.ViewStats{}}
	g := NewCachedGateway(next, client, time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	started := time.Now()
	_, err := g.QueryHits(context.Background(), domain.StatsQuery{URIs: []string{"/events/a"}})
	require.NoError(t, err)
	assert.Less(t, time.Since(started), 2*time.Second)
	assert.Equal(t, 1, next.queries)
}
