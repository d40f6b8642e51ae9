package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orari/pkg/config"
	"orari/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Settings_freezes"

type FreezeRepository interface {
	Get(ctx context.Context, serviceID, date string) (*model.SettingsFreeze, error)
	Insert(ctx context.Context, freeze *model.SettingsFreeze) error
	BackfillSnapshot(ctx context.Context, id string, snapshot []model.WeeklyWindow) error
	Delete(ctx context.Context, id string) error
}

type mongoFreezeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoFreezeRepository(cfg *config.Config) FreezeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoFreezeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoFreezeRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// Get returns nil without error when no freeze exists for the pair.
func (r *mongoFreezeRepository) Get(ctx context.Context, serviceID, date string) (*model.SettingsFreeze, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var freeze model.SettingsFreeze
	err := r.collection.FindOne(ctx, bson.M{"_id": model.FreezeKey(serviceID, date)}).Decode(&freeze)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find settings freeze: %w", err)
	}
	return &freeze, nil
}

// Insert is first-writer-wins: a duplicate-key race on the (service, date)
// _id means another writer already froze the pair, which is success.
func (r *mongoFreezeRepository) Insert(ctx context.Context, freeze *model.SettingsFreeze) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	freeze.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err := r.collection.InsertOne(ctx, freeze)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert settings freeze: %w", err)
	}
	return nil
}

// BackfillSnapshot fills a missing window snapshot exactly once; a freeze
// that already carries one is never touched.
func (r *mongoFreezeRepository) BackfillSnapshot(ctx context.Context, id string, snapshot []model.WeeklyWindow) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"windows_snapshot": bson.M{"$exists": false}},
			bson.M{"windows_snapshot": bson.M{"$size": 0}},
		},
	}
	update := bson.M{"$set": bson.M{"windows_snapshot": snapshot}}
	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to backfill freeze snapshot: %w", err)
	}
	return nil
}

func (r *mongoFreezeRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete settings freeze: %w", err)
	}
	return nil
}
