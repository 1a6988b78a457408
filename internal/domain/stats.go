package domain

import (
	"context"
	"time"
)

// Hit is a single visit of a URI recorded in the stats service.
type Hit struct {
	App       string
	URI       string
	IP        string
	Timestamp time.Time
}

// ViewStats is one aggregated row returned by the stats service.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}

// StatsQuery selects the hits to aggregate. An empty URIs list means all URIs.
type StatsQuery struct {
	Start  time.Time
	End    time.Time
	URIs   []string
	Unique bool
}

// StatsGateway is the port to the external hit-counting service.
type StatsGateway interface {
	RecordHit(ctx context.Context, hit Hit) error
	QueryHits(ctx context.Context, query StatsQuery) ([]ViewStats, error)
}

// StatsPolicy decides what enrichment does when the stats service fails.
type StatsPolicy int

const (
	// StatsBestEffort substitutes zero views for a failed stats lookup.
	StatsBestEffort StatsPolicy = iota
	// StatsRequired returns ErrStatsUnavailable for a failed stats lookup.
	StatsRequired
)

// EventEnricher attaches view and confirmed participant counters to events.
type EventEnricher interface {
	ViewsByEvent(ctx context.Context, eventIDs []string) (map[string]int64, error)
	ConfirmedCountByEvent(ctx context.Context, eventIDs []string) (map[string]int64, error)
	Enrich(ctx context.Context, events []*Event, policy StatsPolicy) ([]*EventView, error)
}
