package repository

import (
	"context"
	"time"

	bookingserrors "orari/internal/bookings/errors"
	"orari/pkg/config"
	"orari/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LockCollectionName = "Booking_locks"

// BookingLockRepository provides advisory locks keyed by (org, date).
// Concurrent writers for the same calendar day collide on the unique _id;
// the TTL index on expires_at reclaims locks from crashed holders.
type BookingLockRepository interface {
	Acquire(ctx context.Context, orgID, date string) (*model.BookingLock, error)
	Release(ctx context.Context, lock *model.BookingLock) error
}

type mongoBookingLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewBookingLockRepository(cfg *config.Config) BookingLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

func (r *mongoBookingLockRepository) Acquire(ctx context.Context, orgID, date string) (*model.BookingLock, error) {
	now := time.Now().UTC()
	lock := &model.BookingLock{
		ID:        orgID + ":" + date,
		Token:     uuid.NewString(),
		ExpiresAt: now.Add(r.cfg.LockTTL),
		CreatedAt: now,
	}

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, bookingserrors.ErrLockHeld
		}
		return nil, err
	}
	return lock, nil
}

// Release deletes the lock only when the token still matches, so an
// expired lock taken over by another writer is never released from here.
func (r *mongoBookingLockRepository) Release(ctx context.Context, lock *model.BookingLock) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lock.ID, "token": lock.Token})
	return err
}
