package availability

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// DefaultLocationTimeout bounds each per-location branch of a
// multi-location search.
const DefaultLocationTimeout = 5 * time.Second

// LocationResults maps location id to the slots found there.
type LocationResults map[string][]CandidateSlot

// LocationErrors maps location id to that branch's failure, if any.
type LocationErrors map[string]error

// FindAvailableSlotsMultiLocation fans the search out across locations
// concurrently and reports per-location results and errors. A branch that
// fails or times out is omitted from the results and recorded in the error
// map; it never aborts the other branches. Branches not yet started when
// ctx is cancelled do not begin.
//
// Each branch searches req.Resources plus the location itself, so
// location-wide blocks and operating hours constrain every provider there.
func (e *Engine) FindAvailableSlotsMultiLocation(ctx context.Context, orgID string, locations []ResourceRef, req SlotRequest, branchTimeout time.Duration) (LocationResults, LocationErrors) {
	if branchTimeout <= 0 {
		branchTimeout = DefaultLocationTimeout
	}

	results := make(LocationResults, len(locations))
	errs := make(LocationErrors)

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, loc := range locations {
		if ctx.Err() != nil {
			mu.Lock()
			errs[loc.ID] = resourceErr(loc, ctx.Err())
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(loc ResourceRef) {
			defer wg.Done()

			branchCtx, cancel := context.WithTimeout(ctx, branchTimeout)
			defer cancel()

			branchReq := req
			branchReq.Resources = withLocation(req.Resources, loc)

			slots, err := e.FindAvailableSlots(branchCtx, orgID, branchReq)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					err = resourceErr(loc, ErrLoaderTimeout)
				}
				errs[loc.ID] = err
				e.metrics.ObserveLocationError(errKind(err))
				e.logger.Warn("availability: location branch failed",
					"org_id", orgID,
					"location_id", loc.ID,
					"error", err,
				)
				return
			}
			results[loc.ID] = slots
		}(loc)
	}

	wg.Wait()
	return results, errs
}

// MergeRanked flattens per-location results into a single ranking using the
// same scorer weights, so cross-location comparisons are fair. Per-location
// slots are already scored; this re-sorts the union stably.
func MergeRanked(results LocationResults) []CandidateSlot {
	var merged []CandidateSlot
	// Deterministic iteration: sort keys before flattening.
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		merged = append(merged, results[id]...)
	}
	sortSlots(merged)
	return merged
}

func withLocation(resources []ResourceRef, loc ResourceRef) []ResourceRef {
	for _, res := range resources {
		if res == loc {
			return resources
		}
	}
	out := make([]ResourceRef, 0, len(resources)+1)
	out = append(out, resources...)
	return append(out, loc)
}

func errKind(err error) string {
	switch {
	case errors.Is(err, ErrLoaderTimeout):
		return "timeout"
	case errors.Is(err, ErrResourceNotFound):
		return "not_found"
	case errors.Is(err, ErrResourceUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrInvalidDuration):
		return "invalid"
	default:
		return "unavailable"
	}
}
