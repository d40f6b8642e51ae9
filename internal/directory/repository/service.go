package repository

import (
	"context"
	"errors"
	"fmt"

	"orari/pkg/config"
	apperrors "orari/pkg/errors"
	"orari/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const ServiceCollectionName = "Services"

type ServiceRepository interface {
	FindByID(ctx context.Context, id string) (*model.Service, error)
	SoloServicesFor(ctx context.Context, orgID, memberID string) ([]*model.Service, error)
	ParamsFor(ctx context.Context, serviceID string) (model.SchedulingParams, error)
}

type mongoServiceRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoServiceRepository(cfg *config.Config) ServiceRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoServiceRepository{
		cfg:        cfg,
		collection: db.Collection(ServiceCollectionName),
	}
}

func (r *mongoServiceRepository) FindByID(ctx context.Context, id string) (*model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var svc model.Service
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&svc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFoundWithID("Service", id)
		}
		return nil, fmt.Errorf("failed to find service: %w", err)
	}
	return &svc, nil
}

// SoloServicesFor matches services whose assignee list is exactly the one
// member, which is what makes a service "solo".
func (r *mongoServiceRepository) SoloServicesFor(ctx context.Context, orgID, memberID string) ([]*model.Service, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"org_id":       orgID,
		"assignee_ids": bson.A{memberID},
	}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find solo services: %w", err)
	}
	defer cursor.Close(ctx)

	var services []*model.Service
	if err = cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}

func (r *mongoServiceRepository) ParamsFor(ctx context.Context, serviceID string) (model.SchedulingParams, error) {
	svc, err := r.FindByID(ctx, serviceID)
	if err != nil {
		return model.SchedulingParams{}, err
	}
	return svc.SchedulingParams, nil
}
