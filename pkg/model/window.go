package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Scope identifies which level of the weekly-availability hierarchy a
// window belongs to.
type Scope string

const (
	ScopeOrg     Scope = "org"
	ScopeMember  Scope = "member"
	ScopeService Scope = "service"
)

func (s Scope) Valid() bool {
	switch s {
	case ScopeOrg, ScopeMember, ScopeService:
		return true
	}
	return false
}

// WeeklyWindow is one recurring open interval on a weekday. OwnerID is the
// organization, member or service the window belongs to, depending on Scope.
// Start and End are wall-clock times in "HH:MM" 24-hour format, interpreted
// in the organization's timezone. Window sets are replaced wholesale on
// save, never patched row by row.
type WeeklyWindow struct {
	ID      string  `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrgID   string  `json:"org_id" bson:"org_id" validate:"required"`
	Scope   Scope   `json:"scope" bson:"scope" validate:"required,oneof=org member service"`
	OwnerID string  `json:"owner_id" bson:"owner_id" validate:"required"`
	Weekday Weekday `json:"weekday" bson:"weekday" validate:"min=0,max=6"`
	Start   string  `json:"start" bson:"start" validate:"required,wall_clock"`
	End     string  `json:"end" bson:"end" validate:"required,wall_clock"`
	Active  bool    `json:"active" bson:"active"`
}

// OnDate materializes the window onto a calendar date in loc.
func (w WeeklyWindow) OnDate(date time.Time, loc *time.Location) (TimeWindow, error) {
	start, err := wallClockOnDate(date, w.Start, loc)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("window start: %w", err)
	}
	end, err := wallClockOnDate(date, w.End, loc)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("window end: %w", err)
	}
	if !end.After(start) {
		return TimeWindow{}, fmt.Errorf("window end %q not after start %q", w.End, w.Start)
	}
	return TimeWindow{Start: start, End: end}, nil
}

// FullDayWindow is the sentinel used when an organization defines no weekly
// rows anywhere: the whole day is treated as open.
func FullDayWindow(date time.Time, loc *time.Location) TimeWindow {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	end := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 0, 0, loc)
	return TimeWindow{Start: start, End: end}
}

// ParseWallClock parses an "HH:MM" wall-clock string.
func ParseWallClock(s string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid wall-clock time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}

func wallClockOnDate(date time.Time, s string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseWallClock(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}
