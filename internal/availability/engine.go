package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/practicahq/platform/pkg/logging"
)

// Search defaults; callers may override per request.
const (
	DefaultGranularity = 30 * time.Minute
	DefaultMaxResults  = 50
)

// Engine is the multi-resource availability aggregator. It composes the
// candidate generator with cross-resource conflict filtering: a slot is
// valid only if every required resource is simultaneously free.
type Engine struct {
	loader  *CalendarLoader
	logger  *logging.Logger
	metrics *Metrics
}

// NewEngine creates the engine over a calendar source.
func NewEngine(source CalendarSource, logger *logging.Logger, metrics *Metrics) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		loader:  NewCalendarLoader(source, logger),
		logger:  logger,
		metrics: metrics,
	}
}

// validate rejects malformed requests before any I/O and fills defaults.
func (req *SlotRequest) validate() error {
	if len(req.Resources) == 0 {
		return fmt.Errorf("%w: at least one resource required", ErrInvalidRequest)
	}
	if req.Duration <= 0 {
		return ErrInvalidDuration
	}
	if !req.Window.End.After(req.Window.Start) {
		return fmt.Errorf("%w: search window is empty or inverted", ErrInvalidRequest)
	}
	if !req.Preferences.TimeBand.Valid() {
		return fmt.Errorf("%w: unknown time band %q", ErrInvalidRequest, req.Preferences.TimeBand)
	}
	if !req.Band.Valid() {
		return fmt.Errorf("%w: unknown time band %q", ErrInvalidRequest, req.Band)
	}
	if req.Granularity <= 0 {
		req.Granularity = DefaultGranularity
	}
	if req.MaxResults <= 0 {
		req.MaxResults = DefaultMaxResults
	}
	return nil
}

// FindAvailableSlots computes up to req.MaxResults bookable slots where all
// requested resources are free, ranked by preference score. Given identical
// inputs (including req.Now) the output is identical across calls.
//
// Open hours come from the generating resource's template (the provider's
// where one is present); the remaining resources constrain candidates
// through their busy intervals only, not their templates.
func (e *Engine) FindAvailableSlots(ctx context.Context, orgID string, req SlotRequest) ([]CandidateSlot, error) {
	started := time.Now()
	slots, err := e.findSlots(ctx, orgID, req)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	e.metrics.ObserveSearch(outcome, len(slots), time.Since(started).Seconds())
	return slots, err
}

func (e *Engine) findSlots(ctx context.Context, orgID string, req SlotRequest) ([]CandidateSlot, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	calendars, err := e.loader.LoadAll(ctx, orgID, req.Resources, req.Window)
	if err != nil {
		return nil, err
	}

	// Generate from the most constrained resource's template. The provider's
	// own schedule is usually the tightest; fall back to the first resource.
	gen := calendars[0]
	for _, cal := range calendars {
		if cal.Resource.Kind == KindProvider {
			gen = cal
			break
		}
	}

	free := make([]TimeInterval, 0, req.MaxResults)
	generateCandidates(gen.Template, req, func(candidate TimeInterval) bool {
		if req.Band != BandAny && !req.Band.Contains(candidate.Start) {
			return true // out of band, keep generating
		}
		for _, cal := range calendars {
			if HasConflict(candidate, cal.Busy) {
				return true // skip, keep generating
			}
		}
		free = append(free, candidate)
		return len(free) < req.MaxResults
	})

	e.logger.Debug("availability: search complete",
		"org_id", orgID,
		"resources", len(req.Resources),
		"slots", len(free),
	)
	return rankSlots(free, req.Preferences), nil
}

// HasConflict is the lightweight existence check a booking commit path uses
// to re-validate a slot before writing. It checks the candidate against the
// busy intervals of every resource, short-circuiting on the first overlap.
func (e *Engine) HasConflict(ctx context.Context, orgID string, candidate TimeInterval, resources []ResourceRef) (bool, error) {
	if len(resources) == 0 {
		return false, fmt.Errorf("%w: at least one resource required", ErrInvalidRequest)
	}
	if candidate.IsZeroLength() {
		return false, ErrInvalidDuration
	}
	for _, res := range resources {
		cal, err := e.loader.Load(ctx, orgID, res, candidate)
		if err != nil {
			return false, err
		}
		if HasConflict(candidate, cal.Busy) {
			return true, nil
		}
	}
	return false, nil
}
