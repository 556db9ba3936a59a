package availability

import "time"

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap: a slot ending exactly when an appointment
// starts is not a conflict.
func Overlaps(a, b TimeInterval) bool {
	a = widenZeroLength(a)
	b = widenZeroLength(b)
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// HasConflict reports whether candidate overlaps any busy interval,
// short-circuiting on the first hit.
func HasConflict(candidate TimeInterval, busy []BusyInterval) bool {
	for _, b := range busy {
		if Overlaps(candidate, b.TimeInterval) {
			return true
		}
	}
	return false
}

// widenZeroLength treats a zero-length busy block as occupying a single
// instant so it still collides with candidates covering it.
func widenZeroLength(iv TimeInterval) TimeInterval {
	if iv.IsZeroLength() {
		iv.End = iv.Start.Add(time.Nanosecond)
	}
	return iv
}
