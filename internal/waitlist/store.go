package waitlist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/practicahq/platform/internal/availability"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides CRUD operations for waitlist_entries.
type Store struct {
	db DB
}

// NewStore creates a waitlist store.
func NewStore(db DB) *Store {
	if db == nil {
		panic("waitlist: db required")
	}
	return &Store{db: db}
}

// Create inserts a new entry.
func (s *Store) Create(ctx context.Context, e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now
	e.Active = true

	resources, err := json.Marshal(e.Resources)
	if err != nil {
		return fmt.Errorf("waitlist: marshal resources: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO waitlist_entries (id, org_id, patient_id, resources, preferred_days, time_band, duration_minutes, priority, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.OrgID, e.PatientID, resources, daysToInts(e.PreferredDays),
		string(e.TimeBand), e.DurationMinutes, e.Priority, e.Active, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("waitlist: create entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry scoped to the org.
func (s *Store) GetByID(ctx context.Context, orgID string, id uuid.UUID) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, org_id, patient_id, resources, preferred_days, time_band, duration_minutes, priority, active, created_at, updated_at
		FROM waitlist_entries
		WHERE id = $1 AND org_id = $2`, id, orgID)
	entry, err := scanEntry(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("waitlist: load entry: %w", err)
	}
	return entry, nil
}

// ListActiveByOrg returns active entries for an org, highest priority first,
// oldest first within a priority.
func (s *Store) ListActiveByOrg(ctx context.Context, orgID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, org_id, patient_id, resources, preferred_days, time_band, duration_minutes, priority, active, created_at, updated_at
		FROM waitlist_entries
		WHERE org_id = $1 AND active
		ORDER BY priority DESC, created_at ASC`, orgID)
	if err != nil {
		return nil, fmt.Errorf("waitlist: list active: %w", err)
	}
	return scanEntries(rows)
}

// ListActiveOrgs returns the org ids with at least one active entry, for
// the sweep worker.
func (s *Store) ListActiveOrgs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT org_id
		FROM waitlist_entries
		WHERE active
		ORDER BY org_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("waitlist: list active orgs: %w", err)
	}
	defer rows.Close()
	var orgs []string
	for rows.Next() {
		var org string
		if err := rows.Scan(&org); err != nil {
			return nil, fmt.Errorf("waitlist: scan org: %w", err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("waitlist: read orgs: %w", err)
	}
	return orgs, nil
}

// Deactivate flips an entry inactive once the caller has booked, withdrawn,
// or expired it.
func (s *Store) Deactivate(ctx context.Context, orgID string, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE waitlist_entries
		SET active = FALSE, updated_at = $3
		WHERE id = $1 AND org_id = $2 AND active`,
		id, orgID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("waitlist: deactivate entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func scanEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("waitlist: scan entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("waitlist: read entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var resources []byte
	var days []int32
	var band string
	if err := row.Scan(&e.ID, &e.OrgID, &e.PatientID, &resources, &days, &band,
		&e.DurationMinutes, &e.Priority, &e.Active, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	if len(resources) > 0 {
		if err := json.Unmarshal(resources, &e.Resources); err != nil {
			return nil, fmt.Errorf("unmarshal resources: %w", err)
		}
	}
	e.PreferredDays = intsToDays(days)
	e.TimeBand = availability.TimeBand(band)
	return &e, nil
}

func daysToInts(days []time.Weekday) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func intsToDays(ints []int32) []time.Weekday {
	if len(ints) == 0 {
		return nil
	}
	out := make([]time.Weekday, len(ints))
	for i, d := range ints {
		out[i] = time.Weekday(d)
	}
	return out
}
