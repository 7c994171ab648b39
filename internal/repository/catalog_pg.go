package repository

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentalops/reservations-tracker/internal/catalog"
)

// PGCatalog serves the property catalog read-only from Postgres. The
// property-management service owns the tables; this side only lists them.
type PGCatalog struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPGCatalog(pool *pgxpool.Pool, logger *slog.Logger) *PGCatalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGCatalog{pool: pool, logger: logger}
}

func (r *PGCatalog) ListProperties(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, COALESCE(array_agg(a.alias) FILTER (WHERE a.alias IS NOT NULL), '{}')
		FROM properties p
		LEFT JOIN property_aliases a ON a.property_id = p.id
		GROUP BY p.id, p.name
		ORDER BY p.name`)
	if err != nil {
		r.logger.Error("catalog.pg.query_failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		var e catalog.Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Aliases); err != nil {
			r.logger.Error("catalog.pg.scan_failed", "error", err)
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	r.logger.Debug("catalog.pg.listed", "count", len(entries))
	return entries, nil
}
