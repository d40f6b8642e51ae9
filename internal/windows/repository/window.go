package repository

import (
	"context"
	"fmt"
	"time"

	"orari/pkg/config"
	mongotx "orari/pkg/db/mongo"
	"orari/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "Weekly_windows"

type WindowRepository interface {
	WindowsFor(ctx context.Context, orgID string, scope model.Scope, ownerID string, weekday model.Weekday) ([]model.WeeklyWindow, error)
	OrgHasAny(ctx context.Context, orgID string) (bool, error)
	FindByOwner(ctx context.Context, orgID string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error)
	ReplaceAll(ctx context.Context, orgID string, scope model.Scope, ownerID string, windows []model.WeeklyWindow) error
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoWindowRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoWindowRepository(cfg *config.Config) WindowRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoWindowRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoWindowRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *mongoWindowRepository) WindowsFor(ctx context.Context, orgID string, scope model.Scope, ownerID string, weekday model.Weekday) ([]model.WeeklyWindow, error) {
	return r.find(ctx, bson.M{
		"org_id":   orgID,
		"scope":    scope,
		"owner_id": ownerID,
		"weekday":  weekday,
		"active":   true,
	})
}

func (r *mongoWindowRepository) OrgHasAny(ctx context.Context, orgID string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{"org_id": orgID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to probe weekly windows: %w", err)
	}
	return count > 0, nil
}

func (r *mongoWindowRepository) FindByOwner(ctx context.Context, orgID string, scope model.Scope, ownerID string) ([]model.WeeklyWindow, error) {
	return r.find(ctx, bson.M{
		"org_id":   orgID,
		"scope":    scope,
		"owner_id": ownerID,
	})
}

// ReplaceAll swaps the owner's whole window set. Callers run it inside a
// transaction so a rejected save never leaves a mixed old/new set behind.
func (r *mongoWindowRepository) ReplaceAll(ctx context.Context, orgID string, scope model.Scope, ownerID string, windows []model.WeeklyWindow) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"org_id": orgID, "scope": scope, "owner_id": ownerID}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return fmt.Errorf("failed to clear weekly windows: %w", err)
	}
	if len(windows) == 0 {
		return nil
	}

	docs := make([]any, len(windows))
	for i := range windows {
		docs[i] = windows[i]
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert weekly windows: %w", err)
	}
	return nil
}

func (r *mongoWindowRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}

func (r *mongoWindowRepository) find(ctx context.Context, filter bson.M) ([]model.WeeklyWindow, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "weekday", Value: 1}, {Key: "start", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find weekly windows: %w", err)
	}
	defer cursor.Close(ctx)

	var windows []model.WeeklyWindow
	if err = cursor.All(ctx, &windows); err != nil {
		return nil, fmt.Errorf("failed to decode weekly windows: %w", err)
	}
	return windows, nil
}
