package waitlist

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/practicahq/platform/internal/availability"
	"github.com/practicahq/platform/pkg/logging"
)

// MatchSink receives sweep results. Implementations decide what to do with
// them (staff dashboard, escalation queue); this package never sends
// outreach itself.
type MatchSink interface {
	OfferMatches(ctx context.Context, result Result) error
	ReportUnmatched(ctx context.Context, entry Entry) error
}

// LogSink is the default sink: it only logs.
type LogSink struct {
	Logger *logging.Logger
}

func (s LogSink) OfferMatches(ctx context.Context, result Result) error {
	s.Logger.Info("waitlist: matches found",
		"org_id", result.Entry.OrgID,
		"entry_id", result.Entry.ID,
		"matches", len(result.Matches),
	)
	return nil
}

func (s LogSink) ReportUnmatched(ctx context.Context, entry Entry) error {
	s.Logger.Info("waitlist: no matches",
		"org_id", entry.OrgID,
		"entry_id", entry.ID,
	)
	return nil
}

// Worker periodically sweeps active waitlist entries, matches them against
// availability, and hands results to the sink. Redis remembers which
// entry/slot pairs were already offered so a sweep does not resurface the
// same slot every interval; the engine itself stays stateless.
type Worker struct {
	store      *Store
	matcher    *Matcher
	rdb        *redis.Client
	sink       MatchSink
	logger     *logging.Logger
	horizon    time.Duration
	maxMatches int
	offerTTL   time.Duration
}

// NewWorker creates a waitlist sweep worker.
func NewWorker(store *Store, matcher *Matcher, rdb *redis.Client, sink MatchSink, logger *logging.Logger, horizon time.Duration, maxMatches int, offerTTL time.Duration) *Worker {
	if store == nil || matcher == nil {
		panic("waitlist: store and matcher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if sink == nil {
		sink = LogSink{Logger: logger}
	}
	if horizon <= 0 {
		horizon = DefaultHorizon
	}
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}
	if offerTTL <= 0 {
		offerTTL = horizon
	}
	return &Worker{
		store:      store,
		matcher:    matcher,
		rdb:        rdb,
		sink:       sink,
		logger:     logger,
		horizon:    horizon,
		maxMatches: maxMatches,
		offerTTL:   offerTTL,
	}
}

// Run sweeps on the given interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.logger.Info("waitlist worker: started", "interval", interval.String())
	for {
		if _, err := w.Sweep(ctx, time.Now().UTC()); err != nil {
			w.logger.Error("waitlist worker: sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			w.logger.Info("waitlist worker: stopping")
			return
		case <-ticker.C:
		}
	}
}

// Sweep matches all active entries across orgs once. Returns the number of
// entries for which new matches were offered.
func (w *Worker) Sweep(ctx context.Context, now time.Time) (int, error) {
	orgs, err := w.store.ListActiveOrgs(ctx)
	if err != nil {
		return 0, fmt.Errorf("waitlist worker: %w", err)
	}

	offered := 0
	for _, orgID := range orgs {
		if ctx.Err() != nil {
			return offered, ctx.Err()
		}
		entries, err := w.store.ListActiveByOrg(ctx, orgID)
		if err != nil {
			w.logger.Error("waitlist worker: list entries failed", "org_id", orgID, "error", err)
			continue
		}

		matched, unmatched := w.matcher.MatchActive(ctx, entries, now, w.horizon, w.maxMatches)
		for _, result := range matched {
			fresh := w.filterOffered(ctx, result)
			if len(fresh.Matches) == 0 {
				continue
			}
			if err := w.sink.OfferMatches(ctx, fresh); err != nil {
				w.logger.Error("waitlist worker: sink offer failed",
					"org_id", orgID, "entry_id", result.Entry.ID, "error", err)
				continue
			}
			offered++
		}
		for _, entry := range unmatched {
			if err := w.sink.ReportUnmatched(ctx, entry); err != nil {
				w.logger.Error("waitlist worker: sink report failed",
					"org_id", orgID, "entry_id", entry.ID, "error", err)
			}
		}
	}
	return offered, nil
}

// filterOffered drops slots already offered for this entry and records the
// remainder with a TTL. Without redis the worker offers everything.
func (w *Worker) filterOffered(ctx context.Context, result Result) Result {
	if w.rdb == nil {
		return result
	}
	fresh := Result{Entry: result.Entry}
	for _, slot := range result.Matches {
		key := offerKey(result.Entry, slot)
		set, err := w.rdb.SetNX(ctx, key, 1, w.offerTTL).Result()
		if err != nil {
			w.logger.Warn("waitlist worker: offer dedupe failed, offering anyway",
				"entry_id", result.Entry.ID, "error", err)
			fresh.Matches = append(fresh.Matches, slot)
			continue
		}
		if set {
			fresh.Matches = append(fresh.Matches, slot)
		}
	}
	return fresh
}

func offerKey(entry Entry, slot availability.CandidateSlot) string {
	return fmt.Sprintf("waitlist:offered:%s:%s:%d",
		entry.OrgID, entry.ID, slot.Interval.Start.Unix())
}
