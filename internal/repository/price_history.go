package repository

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"coinlens/internal/domain"
)

const createPriceHistoryTable = `
CREATE TABLE IF NOT EXISTS price_history (
    coin_id     TEXT        NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL,
    price_usd   NUMERIC     NOT NULL,
    volume_24h  NUMERIC     NOT NULL,
    market_cap  NUMERIC     NOT NULL,
    PRIMARY KEY (coin_id, recorded_at)
);

CREATE INDEX IF NOT EXISTS idx_price_history_coin_time
    ON price_history (coin_id, recorded_at DESC);
`

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PriceHistoryRepository persists point-in-time market observations so
// the dashboard can chart price movement beyond what the live cache holds.
type PriceHistoryRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceHistoryRepository(pool PgxPool, tracer trace.Tracer) *PriceHistoryRepository {
	return &PriceHistoryRepository{pool: pool, tracer: tracer}
}

func (r *PriceHistoryRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "price-history-repo.run-migrations")
	defer span.End()

	_, err := r.pool.Exec(ctx, createPriceHistoryTable)
	return err
}

// RecordSnapshot writes one row per coin. Emergency snapshots are not
// recorded: their zero prices would pollute the history.
func (r *PriceHistoryRepository) RecordSnapshot(ctx context.Context, snapshot domain.Snapshot, at time.Time) error {
	if len(snapshot) == 0 || snapshot.IsEmergency() {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-history-repo.record-snapshot")
	defer span.End()

	ids := make([]string, 0, len(snapshot))
	for id := range snapshot {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	batch := &pgx.Batch{}
	for _, id := range ids {
		coin := snapshot[id]
		batch.Queue(
			`INSERT INTO price_history (coin_id, recorded_at, price_usd, volume_24h, market_cap)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (coin_id, recorded_at) DO NOTHING`,
			coin.ID, at, coin.PriceUSD, coin.Volume24h, coin.MarketCap,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range ids {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PriceHistoryRepository) GetHistory(ctx context.Context, coinID string, limit int) ([]*domain.PricePoint, error) {
	_, span := r.tracer.Start(ctx, "price-history-repo.get-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT coin_id, recorded_at, price_usd, volume_24h, market_cap
		 FROM price_history
		 WHERE coin_id = $1
		 ORDER BY recorded_at DESC
		 LIMIT $2`,
		coinID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPoints(rows)
}

func (r *PriceHistoryRepository) GetHistoryInRange(ctx context.Context, coinID string, from, to time.Time) ([]*domain.PricePoint, error) {
	_, span := r.tracer.Start(ctx, "price-history-repo.get-history-in-range")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT coin_id, recorded_at, price_usd, volume_24h, market_cap
		 FROM price_history
		 WHERE coin_id = $1 AND recorded_at >= $2 AND recorded_at <= $3
		 ORDER BY recorded_at DESC`,
		coinID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPoints(rows)
}

func scanPoints(rows pgx.Rows) ([]*domain.PricePoint, error) {
	var points []*domain.PricePoint
	for rows.Next() {
		p := &domain.PricePoint{}
		if err := rows.Scan(&p.CoinID, &p.RecordedAt, &p.PriceUSD, &p.Volume24h, &p.MarketCap); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}
