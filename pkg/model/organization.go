package model

import (
	"time"
)

// Organization is the tenant context the engine computes against. Timezone
// drives every org-local calculation; TrialEndsAt, when set, caps the
// booking horizon regardless of per-service MaxBookingDays.
type Organization struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty"`
	Slug        string     `json:"slug" bson:"slug" validate:"required,min=2,max=60"`
	Name        string     `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Timezone    string     `json:"timezone" bson:"timezone" validate:"required,timezone"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty" bson:"trial_ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at,omitempty" bson:"created_at"`
}

// Location resolves the organization's timezone, falling back to UTC when
// the stored name does not load.
func (o *Organization) Location() *time.Location {
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MemberRole is the role a membership grants within an organization.
type MemberRole string

const (
	RoleOwner MemberRole = "owner"
	RoleStaff MemberRole = "staff"
)

// Membership links a user to an organization with a role. Staff members
// may own member-scoped weekly windows and be assigned to services.
type Membership struct {
	ID        string     `json:"id,omitempty" bson:"_id,omitempty"`
	OrgID     string     `json:"org_id" bson:"org_id" validate:"required"`
	MemberID  string     `json:"member_id" bson:"member_id" validate:"required"`
	Role      MemberRole `json:"role" bson:"role" validate:"required,oneof=owner staff"`
	CreatedAt time.Time  `json:"created_at,omitempty" bson:"created_at"`
}
