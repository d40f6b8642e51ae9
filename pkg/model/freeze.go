package model

import (
	"time"
)

// SettingsFreeze pins the scheduling semantics of a (service, date) pair
// from the moment the first real booking lands on that date. Owners can
// keep evolving a service's configuration for future dates without
// retroactively moving slots that clients already booked around.
//
// Lifecycle: Absent -> Created (first booking) -> Removed (booking count
// back to zero). Core params are never overwritten after creation; only a
// missing WindowsSnapshot may be backfilled once.
type SettingsFreeze struct {
	ID              string           `json:"id,omitempty" bson:"_id,omitempty"`
	OrgID           string           `json:"org_id" bson:"org_id" validate:"required"`
	ServiceID       string           `json:"service_id" bson:"service_id" validate:"required"`
	Date            string           `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Params          SchedulingParams `json:"params" bson:"params"`
	WindowsSnapshot []WeeklyWindow   `json:"windows_snapshot,omitempty" bson:"windows_snapshot,omitempty"`
	CreatedAt       time.Time        `json:"created_at,omitempty" bson:"created_at"`
}

// HasSnapshot reports whether the weekly-window snapshot was captured.
// Freezes written before snapshotting existed may lack one; those get a
// single backfill.
func (f *SettingsFreeze) HasSnapshot() bool {
	return len(f.WindowsSnapshot) > 0
}

// FreezeKey builds the unique (service, date) identity used as the
// document ID, making first-booking creation race-safe via the unique
// index on _id.
func FreezeKey(serviceID, date string) string {
	return serviceID + ":" + date
}
