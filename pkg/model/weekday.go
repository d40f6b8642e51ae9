package model

import (
	"fmt"
	"time"
)

// Weekday is the storage numbering for days of the week: 0=Monday .. 6=Sunday.
// All persisted weekly windows use this numbering.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// UIWeekday is the client-facing numbering: 0=Sunday .. 6=Saturday.
// It exists only at the API boundary; storage and all computation use Weekday.
type UIWeekday int

// FromUIWeekday converts the client numbering (0=Sunday) to storage numbering (0=Monday).
// This is the single place the two numberings meet.
func FromUIWeekday(d UIWeekday) Weekday {
	return Weekday((int(d) + 6) % 7)
}

// ToUIWeekday converts storage numbering back to the client numbering.
func ToUIWeekday(d Weekday) UIWeekday {
	return UIWeekday((int(d) + 1) % 7)
}

// WeekdayOf maps a calendar date to the storage weekday.
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday has 0=Sunday, storage has 0=Monday.
	return Weekday((int(t.Weekday()) + 6) % 7)
}
