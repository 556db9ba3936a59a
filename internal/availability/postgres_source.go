package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCalendarSource implements CalendarSource over the relational
// schema: resources, appointments (+ appointment_resources link table),
// schedule_blocks, resource_hours, and schedule_exceptions.
type PostgresCalendarSource struct {
	db DB
}

// NewPostgresCalendarSource creates a source backed by pgx.
func NewPostgresCalendarSource(db DB) *PostgresCalendarSource {
	if db == nil {
		panic("availability: db required")
	}
	return &PostgresCalendarSource{db: db}
}

// LoadResourceMetadata looks a resource up by id and kind. The org check
// happens in the loader so unauthorized access is distinguishable from
// absence.
func (s *PostgresCalendarSource) LoadResourceMetadata(ctx context.Context, res ResourceRef) (ResourceMetadata, error) {
	row := s.db.QueryRow(ctx, `
		SELECT org_id, active
		FROM resources
		WHERE id = $1 AND kind = $2`,
		res.ID, string(res.Kind))

	var meta ResourceMetadata
	if err := row.Scan(&meta.OrgID, &meta.Active); err != nil {
		if err == pgx.ErrNoRows {
			return ResourceMetadata{Exists: false}, nil
		}
		return ResourceMetadata{}, fmt.Errorf("availability: load resource metadata: %w", err)
	}
	meta.Exists = true
	return meta, nil
}

// LoadBusyIntervals returns appointment and block commitments overlapping
// the window, org-scoped. Cancelled and no-show appointments do not occupy
// the calendar.
func (s *PostgresCalendarSource) LoadBusyIntervals(ctx context.Context, orgID string, res ResourceRef, window TimeInterval) ([]BusyInterval, error) {
	var busy []BusyInterval

	rows, err := s.db.Query(ctx, `
		SELECT a.starts_at, a.ends_at
		FROM appointments a
		JOIN appointment_resources ar ON ar.appointment_id = a.id
		WHERE ar.resource_id = $1
		  AND a.org_id = $2
		  AND a.status NOT IN ('cancelled', 'no_show')
		  AND a.starts_at < $4
		  AND a.ends_at > $3
		ORDER BY a.starts_at ASC`,
		res.ID, orgID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("availability: load appointments: %w", err)
	}
	busy, err = scanBusy(rows, res, ReasonAppointment, busy)
	if err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx, `
		SELECT starts_at, ends_at
		FROM schedule_blocks
		WHERE resource_id = $1
		  AND org_id = $2
		  AND starts_at < $4
		  AND ends_at > $3
		ORDER BY starts_at ASC`,
		res.ID, orgID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("availability: load schedule blocks: %w", err)
	}
	busy, err = scanBusy(rows, res, ReasonBlock, busy)
	if err != nil {
		return nil, err
	}

	return busy, nil
}

// LoadOpenHoursTemplate assembles the weekly hours plus date exceptions for
// a resource, org-scoped.
func (s *PostgresCalendarSource) LoadOpenHoursTemplate(ctx context.Context, orgID string, res ResourceRef) (OpenHoursTemplate, error) {
	tpl := OpenHoursTemplate{Weekly: make(map[time.Weekday]DayWindow)}

	row := s.db.QueryRow(ctx, `
		SELECT timezone
		FROM resources
		WHERE id = $1 AND org_id = $2`,
		res.ID, orgID)
	if err := row.Scan(&tpl.Timezone); err != nil {
		if err == pgx.ErrNoRows {
			return OpenHoursTemplate{}, ErrResourceNotFound
		}
		return OpenHoursTemplate{}, fmt.Errorf("availability: load resource timezone: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT weekday, opens_at, closes_at
		FROM resource_hours
		WHERE resource_id = $1 AND org_id = $2
		ORDER BY weekday ASC`,
		res.ID, orgID)
	if err != nil {
		return OpenHoursTemplate{}, fmt.Errorf("availability: load resource hours: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var weekday int
		var window DayWindow
		if err := rows.Scan(&weekday, &window.Open, &window.Close); err != nil {
			return OpenHoursTemplate{}, fmt.Errorf("availability: scan resource hours: %w", err)
		}
		tpl.Weekly[time.Weekday(weekday)] = window
	}
	if err := rows.Err(); err != nil {
		return OpenHoursTemplate{}, fmt.Errorf("availability: read resource hours: %w", err)
	}

	rows, err = s.db.Query(ctx, `
		SELECT date, available, COALESCE(override_open, ''), COALESCE(override_close, '')
		FROM schedule_exceptions
		WHERE resource_id = $1 AND org_id = $2
		ORDER BY date ASC`,
		res.ID, orgID)
	if err != nil {
		return OpenHoursTemplate{}, fmt.Errorf("availability: load schedule exceptions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var exc DateException
		if err := rows.Scan(&exc.Date, &exc.Available, &exc.OverrideOpen, &exc.OverrideClose); err != nil {
			return OpenHoursTemplate{}, fmt.Errorf("availability: scan schedule exception: %w", err)
		}
		tpl.Exceptions = append(tpl.Exceptions, exc)
	}
	if err := rows.Err(); err != nil {
		return OpenHoursTemplate{}, fmt.Errorf("availability: read schedule exceptions: %w", err)
	}

	return tpl, nil
}

func scanBusy(rows pgx.Rows, res ResourceRef, reason BusyReason, busy []BusyInterval) ([]BusyInterval, error) {
	defer rows.Close()
	for rows.Next() {
		var iv TimeInterval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("availability: scan busy interval: %w", err)
		}
		busy = append(busy, BusyInterval{TimeInterval: iv, Resource: res, Reason: reason})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("availability: read busy intervals: %w", err)
	}
	return busy, nil
}
