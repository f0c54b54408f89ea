package canvas

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/mural/internal/tracing"
)

// PostgresPlacementRepository implements PlacementRepository using PostgreSQL.
type PostgresPlacementRepository struct {
	db       *sql.DB
	taxonomy IconTaxonomy
	logger   *slog.Logger
}

// NewPostgresPlacementRepository creates a new PostgresPlacementRepository.
// The taxonomy is copied so later mutations by the caller never change the
// category of placements created afterwards.
func NewPostgresPlacementRepository(db *sql.DB, taxonomy IconTaxonomy, logger *slog.Logger) *PostgresPlacementRepository {
	if logger == nil {
		logger = slog.Default()
	}
	frozen := make(IconTaxonomy, len(taxonomy))
	for icon, category := range taxonomy {
		frozen[icon] = category
	}
	return &PostgresPlacementRepository{
		db:       db,
		taxonomy: frozen,
		logger:   logger,
	}
}

// Create persists a new placement, assigning id, timestamp and category.
func (r *PostgresPlacementRepository) Create(ctx context.Context, placement *Placement) (err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "placements", tracing.StoreOperationInsert)
	defer func() { endSpan(err) }()

	placement.ID = uuid.New().String()
	placement.CreatedAt = time.Now().UTC()
	placement.Deleted = false
	placement.Category = r.taxonomy.Categorize(placement.Icon)

	const query = `
		INSERT INTO placements (id, label, icon, category, x, y, owner, created_at, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)`
	if _, err = r.db.ExecContext(ctx, query,
		placement.ID, placement.Label, placement.Icon, placement.Category,
		placement.X, placement.Y, placement.Owner, placement.CreatedAt,
	); err != nil {
		r.logger.Error("failed to insert placement",
			slog.String("error", err.Error()),
			slog.String("owner", placement.Owner))
		return fmt.Errorf("insert placement: %w", err)
	}
	return nil
}

// SoftDelete marks a placement deleted. Idempotent: an already-deleted or
// unknown id updates zero rows and is not an error.
func (r *PostgresPlacementRepository) SoftDelete(ctx context.Context, id string) (err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "placements", tracing.StoreOperationUpdate)
	defer func() { endSpan(err) }()

	const query = `UPDATE placements SET deleted = true WHERE id = $1 AND deleted = false`
	if _, err = r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("soft delete placement: %w", err)
	}
	return nil
}

const placementColumns = `id, label, icon, category, x, y, owner, created_at, deleted`

// ListLive retrieves all live placements, oldest first.
func (r *PostgresPlacementRepository) ListLive(ctx context.Context) ([]*Placement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM placements
		WHERE deleted = false
		ORDER BY created_at ASC, id ASC`, placementColumns)
	return r.query(ctx, query)
}

// ListLiveByOwner retrieves a participant's live placements, oldest first.
func (r *PostgresPlacementRepository) ListLiveByOwner(ctx context.Context, owner string) ([]*Placement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM placements
		WHERE deleted = false AND owner = $1
		ORDER BY created_at ASC, id ASC`, placementColumns)
	return r.query(ctx, query, owner)
}

// ListLiveInWindow retrieves the owner's live placements inside the square
// window of half-width rad centered on (x, y).
func (r *PostgresPlacementRepository) ListLiveInWindow(ctx context.Context, owner string, x, y, rad float64) ([]*Placement, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM placements
		WHERE deleted = false AND owner = $1
		  AND x BETWEEN $2 AND $3
		  AND y BETWEEN $4 AND $5
		ORDER BY created_at ASC, id ASC`, placementColumns)
	return r.query(ctx, query, owner, x-rad, x+rad, y-rad, y+rad)
}

// Aggregates computes a fresh snapshot for the participant. The snapshot is
// derived from the live rows rather than SQL aggregates so the density
// measure shares one bucketing implementation with the heatmap.
func (r *PostgresPlacementRepository) Aggregates(ctx context.Context, owner string) (AggregateSnapshot, error) {
	live, err := r.ListLiveByOwner(ctx, owner)
	if err != nil {
		return AggregateSnapshot{}, err
	}
	return Snapshot(live), nil
}

// Heatmap buckets live placements into the spatial grid.
func (r *PostgresPlacementRepository) Heatmap(ctx context.Context, owner string) ([]HeatmapCell, error) {
	var (
		live []*Placement
		err  error
	)
	if owner == "" {
		live, err = r.ListLive(ctx)
	} else {
		live, err = r.ListLiveByOwner(ctx, owner)
	}
	if err != nil {
		return nil, err
	}
	return BuildHeatmap(live), nil
}

// DashboardStats computes the analytics aggregates over the trailing window.
func (r *PostgresPlacementRepository) DashboardStats(ctx context.Context, window time.Duration) (DashboardStats, error) {
	live, err := r.ListLive(ctx)
	if err != nil {
		return DashboardStats{}, err
	}
	return BuildDashboardStats(live, time.Now().UTC(), window), nil
}

// query runs a placement SELECT and scans the rows.
func (r *PostgresPlacementRepository) query(ctx context.Context, query string, args ...any) (_ []*Placement, err error) {
	ctx, endSpan := tracing.StartStoreSpan(ctx, "placements", tracing.StoreOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query placements: %w", err)
	}
	defer rows.Close()

	var out []*Placement
	for rows.Next() {
		var p Placement
		if err = rows.Scan(&p.ID, &p.Label, &p.Icon, &p.Category,
			&p.X, &p.Y, &p.Owner, &p.CreatedAt, &p.Deleted); err != nil {
			return nil, fmt.Errorf("scan placement: %w", err)
		}
		out = append(out, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate placements: %w", err)
	}
	return out, nil
}
