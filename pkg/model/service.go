package model

import (
	"time"
)

// SchedulingParams are the per-service knobs that shape slot generation.
// These are the fields captured by a settings freeze; notice/advance bounds
// stay live even on frozen dates.
type SchedulingParams struct {
	DurationMin                int  `json:"duration_min" bson:"duration_min" validate:"required,min=5,max=1440"`
	BufferAfterMin             int  `json:"buffer_after_min" bson:"buffer_after_min" validate:"min=0,max=480"`
	IncrementMin               int  `json:"increment_min" bson:"increment_min" validate:"required,min=5,max=480"`
	UseFixedIncrement          bool `json:"use_fixed_increment" bson:"use_fixed_increment"`
	AllowEndsAfterAvailability bool `json:"allow_ends_after_availability" bson:"allow_ends_after_availability"`
	AllowSquishedBookings      bool `json:"allow_squished_bookings" bson:"allow_squished_bookings"`
}

func (p SchedulingParams) Duration() time.Duration {
	return time.Duration(p.DurationMin) * time.Minute
}

func (p SchedulingParams) BufferAfter() time.Duration {
	return time.Duration(p.BufferAfterMin) * time.Minute
}

// Step returns the interval between candidate slot starts. With a fixed
// increment the grid is duration+buffer; otherwise the configured increment.
func (p SchedulingParams) Step() time.Duration {
	if p.UseFixedIncrement {
		return p.Duration() + p.BufferAfter()
	}
	return time.Duration(p.IncrementMin) * time.Minute
}

// Service is a bookable offering. Changes to SchedulingParams apply only to
// dates without a settings freeze.
type Service struct {
	ID               string           `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OrgID            string           `json:"org_id" bson:"org_id" validate:"required"`
	Name             string           `json:"name" bson:"name" validate:"required,min=2,max=100"`
	SchedulingParams `bson:",inline"`
	MinNoticeHours   int       `json:"min_notice_hours" bson:"min_notice_hours" validate:"min=0,max=720"`
	MaxBookingDays   int       `json:"max_booking_days" bson:"max_booking_days" validate:"required,min=1,max=365"`
	AssigneeIDs      []string  `json:"assignee_ids" bson:"assignee_ids" validate:"omitempty,dive,required"`
	CreatedAt        time.Time `json:"created_at,omitempty" bson:"created_at"`
}

// IsSolo reports whether the service is delivered by exactly one member.
// Only solo services may inherit member-scoped weekly windows.
func (s *Service) IsSolo() bool {
	return len(s.AssigneeIDs) == 1
}

func (s *Service) SoleAssignee() string {
	if !s.IsSolo() {
		return ""
	}
	return s.AssigneeIDs[0]
}

// SchedulingSignature is the tuple compared when deciding whether two solo
// services of one member are configured alike. Services with differing
// signatures must carry explicitly partitioned windows.
type SchedulingSignature struct {
	DurationMin                int
	BufferAfterMin             int
	IncrementMin               int
	UseFixedIncrement          bool
	AllowSquishedBookings      bool
	AllowEndsAfterAvailability bool
	MinNoticeHours             int
	MaxBookingDays             int
}

func (s *Service) Signature() SchedulingSignature {
	return SchedulingSignature{
		DurationMin:                s.DurationMin,
		BufferAfterMin:             s.BufferAfterMin,
		IncrementMin:               s.IncrementMin,
		UseFixedIncrement:          s.UseFixedIncrement,
		AllowSquishedBookings:      s.AllowSquishedBookings,
		AllowEndsAfterAvailability: s.AllowEndsAfterAvailability,
		MinNoticeHours:             s.MinNoticeHours,
		MaxBookingDays:             s.MaxBookingDays,
	}
}
