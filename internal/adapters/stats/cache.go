package stats

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"eventpublisher/internal/domain"
)

const cacheKeyPrefix = "stats:hits:"

type cachedGateway struct {
	next   domain.StatsGateway
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedGateway wraps next with a Redis read-through cache for QueryHits.
// The query end is not part of the cache key, so cached counts may lag by up to ttl.
// Redis failures fall through to next.
func NewCachedGateway(next domain.StatsGateway, client *redis.Client, ttl time.Duration, logger *slog.Logger) domain.StatsGateway {
	return &cachedGateway{next: next, client: client, ttl: ttl, logger: logger}
}

func (g *cachedGateway) RecordHit(ctx context.Context, hit domain.Hit) error {
	return g.next.RecordHit(ctx, hit)
}

func (g *cachedGateway) QueryHits(ctx context.Context, q domain.StatsQuery) ([]domain.ViewStats, error) {
	key := cacheKey(q)
	data, err := g.client.Get(ctx, key).Bytes()
	if err == nil {
		var stats []domain.ViewStats
		if err := json.Unmarshal(data, &stats); err == nil {
			return stats, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		g.logger.WarnContext(ctx, "stats cache read failed", "err", err)
	}

	stats, err := g.next.QueryHits(ctx, q)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(stats); err == nil {
		if err := g.client.Set(ctx, key, data, g.ttl).Err(); err != nil {
			g.logger.WarnContext(ctx, "stats cache write failed", "err", err)
		}
	}
	return stats, nil
}

// cacheKey identifies a query by its start, uniqueness flag and sorted URI set.
func cacheKey(q domain.StatsQuery) string {
	uris := slices.Clone(q.URIs)
	slices.Sort(uris)
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(q.Start.Unix(), 10)))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(q.Unique)))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(uris, "\n")))
	return cacheKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
