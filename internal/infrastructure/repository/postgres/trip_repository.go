package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/itinerary-agent/internal/core/domain"
)

const schemaLockID int64 = 2026101701

type TripRepository struct {
	db *sql.DB
}

func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// api and worker both bootstrap the schema on start.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS trips (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	request JSONB NOT NULL,
	state JSONB,
	itinerary JSONB,
	issues JSONB NOT NULL DEFAULT '[]'::jsonb,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status);
CREATE INDEX IF NOT EXISTS idx_trips_created_at ON trips(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	cols, err := encodeTrip(trip)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO trips (
	id, status, request, state, itinerary, issues, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`,
		trip.ID, string(trip.Status), cols.request, cols.state, cols.itinerary, cols.issues,
		trip.ErrorMessage, trip.CreatedAt, trip.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	cols, err := encodeTrip(trip)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE trips
SET status = $2, state = $3, itinerary = $4, issues = $5, error_message = $6, updated_at = $7
WHERE id = $1
`, trip.ID, string(trip.Status), cols.state, cols.itinerary, cols.issues, trip.ErrorMessage, trip.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update trip rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrTripNotFound, "update trip", errors.New(trip.ID))
	}
	return nil
}

func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, status, request, state, itinerary, issues, error_message, created_at, updated_at
FROM trips
WHERE id = $1
`, id)

	var trip domain.Trip
	var status string
	var requestRaw, stateRaw, itineraryRaw, issuesRaw []byte

	err := row.Scan(
		&trip.ID, &status, &requestRaw, &stateRaw, &itineraryRaw, &issuesRaw,
		&trip.ErrorMessage, &trip.CreatedAt, &trip.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTripNotFound, "get trip", errors.New(id))
		}
		return nil, fmt.Errorf("scan trip: %w", err)
	}
	trip.Status = domain.TripStatus(status)

	if err := json.Unmarshal(requestRaw, &trip.Request); err != nil {
		return nil, fmt.Errorf("unmarshal trip request: %w", err)
	}
	if len(stateRaw) > 0 {
		trip.State = &domain.AgentState{}
		if err := json.Unmarshal(stateRaw, trip.State); err != nil {
			return nil, fmt.Errorf("unmarshal trip state: %w", err)
		}
	}
	if len(itineraryRaw) > 0 {
		trip.Itinerary = &domain.Itinerary{}
		if err := json.Unmarshal(itineraryRaw, trip.Itinerary); err != nil {
			return nil, fmt.Errorf("unmarshal trip itinerary: %w", err)
		}
	}
	if err := json.Unmarshal(issuesRaw, &trip.Issues); err != nil {
		return nil, fmt.Errorf("unmarshal trip issues: %w", err)
	}
	if trip.Issues == nil {
		trip.Issues = []string{}
	}
	return &trip, nil
}

type tripColumns struct {
	request   []byte
	state     []byte
	itinerary []byte
	issues    []byte
}

// encodeTrip leaves state and itinerary NULL until planning fills them.
func encodeTrip(trip *domain.Trip) (tripColumns, error) {
	var cols tripColumns
	var err error
	if cols.request, err = json.Marshal(trip.Request); err != nil {
		return cols, fmt.Errorf("marshal trip request: %w", err)
	}
	if trip.State != nil {
		if cols.state, err = json.Marshal(trip.State); err != nil {
			return cols, fmt.Errorf("marshal trip state: %w", err)
		}
	}
	if trip.Itinerary != nil {
		if cols.itinerary, err = json.Marshal(trip.Itinerary); err != nil {
			return cols, fmt.Errorf("marshal trip itinerary: %w", err)
		}
	}
	issues := trip.Issues
	if issues == nil {
		issues = []string{}
	}
	if cols.issues, err = json.Marshal(issues); err != nil {
		return cols, fmt.Errorf("marshal trip issues: %w", err)
	}
	return cols, nil
}
