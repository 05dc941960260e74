package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"coinlens/internal/domain"
)

type SnapshotSource interface {
	FetchMarketData(ctx context.Context, minCount int, diagnostic bool) domain.Snapshot
	FetchSentiment(ctx context.Context) domain.SentimentSummary
}

type SnapshotRecorder interface {
	RecordSnapshot(ctx context.Context, snapshot domain.Snapshot, at time.Time) error
}

// Refresher keeps the market and sentiment caches warm so interactive
// requests rarely pay the upstream latency, and records each snapshot
// into the price history when a recorder is configured.
type Refresher struct {
	tracer   trace.Tracer
	source   SnapshotSource
	recorder SnapshotRecorder
	interval time.Duration

	now func() time.Time
}

func NewRefresher(tracer trace.Tracer, source SnapshotSource, recorder SnapshotRecorder, intervalSecs int) *Refresher {
	return &Refresher{
		tracer:   tracer,
		source:   source,
		recorder: recorder,
		interval: time.Duration(intervalSecs) * time.Second,
		now:      time.Now,
	}
}

// Start refreshes immediately, then on every tick. Blocks until ctx is
// cancelled.
func (r *Refresher) Start(ctx context.Context) {
	log.Println("Refresher starting...")

	if err := r.refreshOnce(ctx); err != nil {
		log.Printf("refresher initial run error: %v", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresher stopped")
			return
		case <-ticker.C:
			if err := r.refreshOnce(ctx); err != nil {
				log.Printf("refresher error: %v", err)
			}
		}
	}
}

// refreshOnce warms sentiment first so freshly fetched coins pick up a
// current sentiment tag.
func (r *Refresher) refreshOnce(ctx context.Context) error {
	ctx, span := r.tracer.Start(ctx, "refresher.refresh")
	defer span.End()

	r.source.FetchSentiment(ctx)

	snapshot := r.source.FetchMarketData(ctx, 0, false)
	if snapshot.IsEmergency() {
		log.Println("refresher: upstream degraded, snapshot not recorded")
		return nil
	}
	if r.recorder == nil {
		return nil
	}
	return r.recorder.RecordSnapshot(ctx, snapshot, r.now())
}
