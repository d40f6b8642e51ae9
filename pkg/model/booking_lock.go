package model

import "time"

// BookingLock is an advisory lock serializing booking writes per
// (organization, date). Creation races on the same day collide on the
// duplicate-key constraint of _id; the TTL index on expires_at cleans up
// locks abandoned by crashed writers.
type BookingLock struct {
	ID        string    `bson:"_id" json:"id"`
	Token     string    `bson:"token" json:"token"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
