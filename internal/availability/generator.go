package availability

import "time"

// generateCandidates steps through the request window at the request
// granularity and emits candidate intervals that fit entirely inside the
// template's open hours for their date. Candidates are emitted in
// nondecreasing start order. Emission stops when emit returns false, so
// generation is lazy and bounded by the consumer.
//
// Closed days (template absence or unavailable exception) are skipped
// outright rather than emitted and filtered downstream, and a candidate
// never crosses a closing boundary even if the next day reopens.
func generateCandidates(tpl OpenHoursTemplate, req SlotRequest, emit func(TimeInterval) bool) {
	loc := tpl.Location()
	day := startOfDay(req.Window.Start.In(loc))
	lastDay := startOfDay(req.Window.End.In(loc))

	for !day.After(lastDay) {
		if !weekdayAllowed(req.Days, day.Weekday()) {
			day = day.AddDate(0, 0, 1)
			continue
		}

		open, close, ok := tpl.ResolveDay(day)
		if !ok {
			day = day.AddDate(0, 0, 1)
			continue
		}

		// Clamp to the search window and, when requested, to "now".
		lower := open
		if req.Window.Start.After(lower) {
			lower = req.Window.Start
		}
		if req.FutureOnly && req.Now.After(lower) {
			lower = req.Now
		}
		upper := close
		if req.Window.End.Before(upper) {
			upper = req.Window.End
		}

		// Candidate starts stay aligned to granularity steps from the
		// day's opening time.
		for t := alignToStep(lower, open, req.Granularity); ; t = t.Add(req.Granularity) {
			end := t.Add(req.Duration)
			if end.After(upper) {
				break
			}
			if !emit(TimeInterval{Start: t, End: end}) {
				return
			}
		}

		day = day.AddDate(0, 0, 1)
	}
}

func weekdayAllowed(days []time.Weekday, wd time.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == wd {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// alignToStep rounds lower up to the next granularity step measured from
// anchor. lower == anchor stays put.
func alignToStep(lower, anchor time.Time, step time.Duration) time.Time {
	if !lower.After(anchor) {
		return anchor
	}
	offset := lower.Sub(anchor)
	steps := offset / step
	if offset%step != 0 {
		steps++
	}
	return anchor.Add(steps * step)
}
