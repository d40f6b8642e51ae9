package model

import (
	"time"
)

// ChangeKind classifies booking lifecycle events published to the
// notification and audit sinks.
type ChangeKind string

const (
	ChangeCreated   ChangeKind = "created"
	ChangeCancelled ChangeKind = "cancelled"
	ChangeDeleted   ChangeKind = "deleted"
)

// Booking is a committed interval on an organization's calendar.
//
// Two flavors share the collection: real bookings carry a ServiceID, while
// date overrides have ServiceID empty. A blocking override removes
// availability for its span; an open (non-blocking) override opens time,
// taking precedence over member-level blocks. The presence of any override
// on a date supersedes weekly windows for that date entirely.
type Booking struct {
	ID          string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrgID       string    `json:"org_id" bson:"org_id" validate:"required"`
	ServiceID   string    `json:"service_id,omitempty" bson:"service_id,omitempty"`
	MemberID    string    `json:"member_id,omitempty" bson:"member_id,omitempty"`
	Start       time.Time `json:"start" bson:"start" validate:"required"`
	End         time.Time `json:"end" bson:"end" validate:"required,gtfield=Start"`
	IsBlocking  bool      `json:"is_blocking" bson:"is_blocking"`
	ClientName  string    `json:"client_name,omitempty" bson:"client_name,omitempty" validate:"omitempty,min=2,max=100"`
	ClientPhone string    `json:"client_phone,omitempty" bson:"client_phone,omitempty" validate:"omitempty,e164"`
	CreatedAt   time.Time `json:"created_at,omitempty" bson:"created_at"`
}

// IsReal reports whether the row is an actual client booking rather than a
// date override.
func (b *Booking) IsReal() bool {
	return b.ServiceID != ""
}

// IsOverride reports whether the row is a one-off date exception.
func (b *Booking) IsOverride() bool {
	return b.ServiceID == ""
}

// Window returns the booked interval as a TimeWindow.
func (b *Booking) Window() TimeWindow {
	return TimeWindow{Start: b.Start, End: b.End}
}

// DateKey returns the booking's calendar date in loc, formatted the way
// settings freezes are keyed.
func (b *Booking) DateKey(loc *time.Location) string {
	return b.Start.In(loc).Format(DateLayout)
}

// DateLayout is the canonical calendar-date format used for freeze keys and
// day-summary responses.
const DateLayout = "2006-01-02"
