package waitlist

import (
	"context"
	"time"

	"github.com/practicahq/platform/internal/availability"
	"github.com/practicahq/platform/pkg/logging"
)

// Matching defaults: a small number of near-term options per entry.
const (
	DefaultHorizon    = 14 * 24 * time.Hour
	DefaultMaxMatches = 3
)

// Matcher finds bookable slots for waitlist entries by querying the
// availability engine. It performs no outreach and no mutation.
type Matcher struct {
	engine *availability.Engine
	logger *logging.Logger
}

// NewMatcher creates a waitlist matcher.
func NewMatcher(engine *availability.Engine, logger *logging.Logger) *Matcher {
	if engine == nil {
		panic("waitlist: engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Matcher{engine: engine, logger: logger}
}

// MatchEntry finds up to maxMatches future slots for one entry within the
// lookahead horizon starting at now. Zero matches is a normal empty result,
// not an error.
func (m *Matcher) MatchEntry(ctx context.Context, entry Entry, now time.Time, horizon time.Duration, maxMatches int) ([]availability.CandidateSlot, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	// A band preference on a waitlist entry is a filter, not a tiebreak, so
	// it rides Band: out-of-band candidates never count against maxMatches.
	req := availability.SlotRequest{
		Resources:  entry.Resources,
		Days:       entry.PreferredDays,
		Band:       entry.TimeBand,
		Duration:   time.Duration(entry.DurationMinutes) * time.Minute,
		Window:     availability.TimeInterval{Start: now, End: now.Add(horizon)},
		Now:        now,
		FutureOnly: true,
		MaxResults: maxMatches,
	}

	return m.engine.FindAvailableSlots(ctx, entry.OrgID, req)
}

// MatchActive matches every active entry for an org, partitioning entries
// with matches from those without so callers can decide on escalation.
// Per-entry failures are logged and counted as unmatched rather than
// aborting the sweep.
func (m *Matcher) MatchActive(ctx context.Context, entries []Entry, now time.Time, horizon time.Duration, maxMatches int) (matched []Result, unmatched []Entry) {
	for _, entry := range entries {
		if ctx.Err() != nil {
			return matched, unmatched
		}
		slots, err := m.MatchEntry(ctx, entry, now, horizon, maxMatches)
		if err != nil {
			m.logger.Warn("waitlist: match failed",
				"org_id", entry.OrgID,
				"entry_id", entry.ID,
				"error", err,
			)
			unmatched = append(unmatched, entry)
			continue
		}
		if len(slots) == 0 {
			unmatched = append(unmatched, entry)
			continue
		}
		matched = append(matched, Result{Entry: entry, Matches: slots})
	}
	return matched, unmatched
}
