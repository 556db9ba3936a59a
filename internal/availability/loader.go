package availability

import (
	"context"
	"errors"
	"fmt"

	"github.com/practicahq/platform/pkg/logging"
)

// CalendarSource is the read-only store contract the engine consumes.
// Implementations must scope busy/template lookups to the given org.
type CalendarSource interface {
	LoadBusyIntervals(ctx context.Context, orgID string, res ResourceRef, window TimeInterval) ([]BusyInterval, error)
	LoadOpenHoursTemplate(ctx context.Context, orgID string, res ResourceRef) (OpenHoursTemplate, error)
	LoadResourceMetadata(ctx context.Context, res ResourceRef) (ResourceMetadata, error)
}

// CalendarLoader fetches a resource's busy intervals and open-hours template
// for a bounded window, enforcing existence and tenant ownership.
type CalendarLoader struct {
	source CalendarSource
	logger *logging.Logger
}

// NewCalendarLoader creates a loader over the given source.
func NewCalendarLoader(source CalendarSource, logger *logging.Logger) *CalendarLoader {
	if source == nil {
		panic("availability: calendar source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CalendarLoader{source: source, logger: logger}
}

// Load fetches the calendar for one resource. Errors carry the offending
// ResourceRef via ResourceError.
func (l *CalendarLoader) Load(ctx context.Context, orgID string, res ResourceRef, window TimeInterval) (ResourceCalendar, error) {
	meta, err := l.source.LoadResourceMetadata(ctx, res)
	if err != nil {
		return ResourceCalendar{}, resourceErr(res, classifyLoadErr(err))
	}
	if !meta.Exists || !meta.Active {
		return ResourceCalendar{}, resourceErr(res, ErrResourceNotFound)
	}
	if meta.OrgID != orgID {
		return ResourceCalendar{}, resourceErr(res, ErrResourceUnauthorized)
	}

	tpl, err := l.source.LoadOpenHoursTemplate(ctx, orgID, res)
	if err != nil {
		return ResourceCalendar{}, resourceErr(res, classifyLoadErr(err))
	}
	for _, issue := range tpl.Issues() {
		l.logger.Warn("availability: malformed open hours, treating day as closed",
			"org_id", orgID,
			"resource", res.String(),
			"issue", issue,
		)
	}

	busy, err := l.source.LoadBusyIntervals(ctx, orgID, res, window)
	if err != nil {
		return ResourceCalendar{}, resourceErr(res, classifyLoadErr(err))
	}

	return ResourceCalendar{Resource: res, Busy: busy, Template: tpl}, nil
}

// LoadAll fetches calendars for every requested resource, failing on the
// first resource that cannot be loaded.
func (l *CalendarLoader) LoadAll(ctx context.Context, orgID string, resources []ResourceRef, window TimeInterval) ([]ResourceCalendar, error) {
	calendars := make([]ResourceCalendar, 0, len(resources))
	for _, res := range resources {
		cal, err := l.Load(ctx, orgID, res, window)
		if err != nil {
			return nil, err
		}
		calendars = append(calendars, cal)
	}
	return calendars, nil
}

func classifyLoadErr(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrLoaderTimeout, err)
	case errors.Is(err, ErrResourceNotFound),
		errors.Is(err, ErrResourceUnauthorized),
		errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrLoaderUnavailable, err)
	}
}
