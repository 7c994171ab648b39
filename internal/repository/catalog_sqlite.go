package repository

import (
	"context"
	"database/sql"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/rentalops/reservations-tracker/internal/catalog"
)

// SQLiteCatalog serves the property catalog from a local sqlite file,
// used by the one-shot CLI and in development where no Postgres runs.
type SQLiteCatalog struct {
	db     *sql.DB
	logger *slog.Logger
}

func OpenSQLiteCatalog(path string, logger *slog.Logger) (*SQLiteCatalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		logger.Error("catalog.sqlite.open_failed", "path", path, "error", err)
		return nil, err
	}
	return &SQLiteCatalog{db: db, logger: logger}, nil
}

func (r *SQLiteCatalog) Close() error {
	return r.db.Close()
}

func (r *SQLiteCatalog) ListProperties(ctx context.Context) ([]catalog.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(a.alias, '')
		FROM properties p
		LEFT JOIN property_aliases a ON a.property_id = p.id
		ORDER BY p.id`)
	if err != nil {
		r.logger.Error("catalog.sqlite.query_failed", "error", err)
		return nil, err
	}
	defer rows.Close()

	byID := map[int64]*catalog.Entry{}
	var order []int64
	for rows.Next() {
		var (
			id    int64
			name  string
			alias string
		)
		if err := rows.Scan(&id, &name, &alias); err != nil {
			r.logger.Error("catalog.sqlite.scan_failed", "error", err)
			return nil, err
		}
		e, ok := byID[id]
		if !ok {
			e = &catalog.Entry{ID: id, Name: name}
			byID[id] = e
			order = append(order, id)
		}
		if alias != "" {
			e.Aliases = append(e.Aliases, alias)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries := make([]catalog.Entry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byID[id])
	}
	r.logger.Debug("catalog.sqlite.listed", "count", len(entries))
	return entries, nil
}
