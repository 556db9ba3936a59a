package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	locNorth = ResourceRef{Kind: KindLocation, ID: "loc-north"}
	locSouth = ResourceRef{Kind: KindLocation, ID: "loc-south"}
)

func multiLocationRequest() SlotRequest {
	return SlotRequest{
		Resources:   []ResourceRef{provider},
		Duration:    30 * time.Minute,
		Granularity: 30 * time.Minute,
		Window:      TimeInterval{Start: monday.Add(9 * time.Hour), End: monday.Add(11 * time.Hour)},
	}
}

func TestMultiLocationFansOutAndMerges(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate())
	src.addResource(locNorth, weekdayTemplate())
	src.addResource(locSouth, weekdayTemplate(),
		busyAt(locSouth, monday, 9, 0, time.Hour, ReasonBlock))
	engine := NewEngine(src, nil, nil)

	results, errs := engine.FindAvailableSlotsMultiLocation(context.Background(), testOrg,
		[]ResourceRef{locNorth, locSouth}, multiLocationRequest(), time.Second)

	assert.Empty(t, errs)
	require.Len(t, results, 2)
	assert.Len(t, results[locNorth.ID], 4)
	// South loses 09:00 and 09:30 to the location block.
	assert.Len(t, results[locSouth.ID], 2)

	merged := MergeRanked(results)
	assert.Len(t, merged, 6)
	for i := 1; i < len(merged); i++ {
		if merged[i].Score == merged[i-1].Score {
			assert.False(t, merged[i].Interval.Start.Before(merged[i-1].Interval.Start))
		}
	}
}

// One location failing must not abort the other branches.
func TestMultiLocationIsolatesBranchFailure(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate())
	src.addResource(locNorth, weekdayTemplate())
	// locSouth is unknown to the store.
	engine := NewEngine(src, nil, nil)

	results, errs := engine.FindAvailableSlotsMultiLocation(context.Background(), testOrg,
		[]ResourceRef{locNorth, locSouth}, multiLocationRequest(), time.Second)

	require.Len(t, results, 1)
	assert.NotEmpty(t, results[locNorth.ID])

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[locSouth.ID], ErrResourceNotFound)
}

// Branches not yet started when the context is cancelled must not begin.
func TestMultiLocationCancelledBeforeStart(t *testing.T) {
	src := newStubSource()
	src.addResource(provider, weekdayTemplate())
	src.addResource(locNorth, weekdayTemplate())
	engine := NewEngine(src, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, errs := engine.FindAvailableSlotsMultiLocation(ctx, testOrg,
		[]ResourceRef{locNorth, locSouth}, multiLocationRequest(), time.Second)

	assert.Empty(t, results)
	require.Len(t, errs, 2)
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Zero(t, src.loadCount(), "no calendar loads after cancellation")
}

func TestMergeRankedDeterministic(t *testing.T) {
	results := LocationResults{
		"b": {{Interval: slotAt(monday, 10, 0, time.Hour), Score: 50}},
		"a": {{Interval: slotAt(monday, 10, 0, time.Hour), Score: 50}},
	}
	first := MergeRanked(results)
	for range 5 {
		assert.Equal(t, first, MergeRanked(results))
	}
}
