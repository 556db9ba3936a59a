package availability

import "sort"

// Scoring weights. Fixed and documented so rankings are reproducible; the
// engine does not learn or adapt weights.
const (
	scoreBase        = 50
	scoreAnchorDate  = 30
	scoreTimeBand    = 20
	idealHour        = 10
	hourDistanceCost = 2
)

// Matched-preference labels reported on CandidateSlot.
const (
	prefAnchorDate = "anchor_date"
	prefTimeBand   = "time_band"
)

// scoreSlot assigns the deterministic desirability score for one interval.
func scoreSlot(iv TimeInterval, prefs Preferences) (int, []string) {
	score := scoreBase
	var matched []string

	onAnchor := false
	if prefs.AnchorDate != nil {
		ay, am, ad := prefs.AnchorDate.Date()
		sy, sm, sd := iv.Start.Date()
		if ay == sy && am == sm && ad == sd {
			onAnchor = true
			score += scoreAnchorDate
			matched = append(matched, prefAnchorDate)
		}
	}

	if prefs.TimeBand != BandAny && prefs.TimeBand.Contains(iv.Start) {
		score += scoreTimeBand
		matched = append(matched, prefTimeBand)
	}

	// On the preferred date only, prefer bookings centered near the ideal
	// hour as a secondary tie-break.
	if onAnchor {
		dist := iv.Start.Hour() - idealHour
		if dist < 0 {
			dist = -dist
		}
		score -= hourDistanceCost * dist
	}

	return score, matched
}

// rankSlots scores every interval and returns a new ordered slice: score
// descending, ties broken by earliest start. Input order is not mutated.
func rankSlots(intervals []TimeInterval, prefs Preferences) []CandidateSlot {
	slots := make([]CandidateSlot, len(intervals))
	for i, iv := range intervals {
		score, matched := scoreSlot(iv, prefs)
		slots[i] = CandidateSlot{Interval: iv, Score: score, MatchedPreferences: matched}
	}
	sortSlots(slots)
	return slots
}

func sortSlots(slots []CandidateSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Score != slots[j].Score {
			return slots[i].Score > slots[j].Score
		}
		return slots[i].Interval.Start.Before(slots[j].Interval.Start)
	})
}
