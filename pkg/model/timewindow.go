package model

import (
	"fmt"
	"sort"
	"time"
)

// TimeWindow is a half-open interval [Start, End). End must be after Start.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w TimeWindow) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Overlaps reports whether two half-open intervals share any instant.
func (w TimeWindow) Overlaps(other TimeWindow) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains reports whether other lies entirely within w.
func (w TimeWindow) Contains(other TimeWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// ContainsInstant reports whether t falls inside [Start, End).
func (w TimeWindow) ContainsInstant(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Clamp returns the intersection of w with bounds, or a zero window
// when they do not overlap.
func (w TimeWindow) Clamp(bounds TimeWindow) TimeWindow {
	out := w
	if out.Start.Before(bounds.Start) {
		out.Start = bounds.Start
	}
	if out.End.After(bounds.End) {
		out.End = bounds.End
	}
	if !out.End.After(out.Start) {
		return TimeWindow{}
	}
	return out
}

// SubtractAll removes every busy interval from w and returns the remaining
// free segments in ascending order. Busy intervals may overlap each other
// and may extend past the edges of w.
func (w TimeWindow) SubtractAll(busy []TimeWindow) []TimeWindow {
	sorted := make([]TimeWindow, 0, len(busy))
	for _, b := range busy {
		if b.Overlaps(w) {
			sorted = append(sorted, b)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var segments []TimeWindow
	cursor := w.Start
	for _, b := range sorted {
		if b.Start.After(cursor) {
			segments = append(segments, TimeWindow{Start: cursor, End: minTime(b.Start, w.End)})
		}
		if b.End.After(cursor) {
			cursor = b.End
		}
		if !cursor.Before(w.End) {
			return segments
		}
	}
	if cursor.Before(w.End) {
		segments = append(segments, TimeWindow{Start: cursor, End: w.End})
	}
	return segments
}

// MergeWindows sorts the windows and coalesces any that touch or overlap.
func MergeWindows(windows []TimeWindow) []TimeWindow {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]TimeWindow, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []TimeWindow{sorted[0]}
	for _, w := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !w.Start.After(last.End) {
			if w.End.After(last.End) {
				last.End = w.End
			}
			continue
		}
		merged = append(merged, w)
	}
	return merged
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
