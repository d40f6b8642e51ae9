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
)

const OrganizationCollectionName = "Organizations"

type OrganizationRepository interface {
	FindBySlug(ctx context.Context, slug string) (*model.Organization, error)
	FindByID(ctx context.Context, id string) (*model.Organization, error)
}

type mongoOrganizationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoOrganizationRepository(cfg *config.Config) OrganizationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOrganizationRepository{
		cfg:        cfg,
		collection: db.Collection(OrganizationCollectionName),
	}
}

func (r *mongoOrganizationRepository) FindBySlug(ctx context.Context, slug string) (*model.Organization, error) {
	return r.findOne(ctx, bson.M{"slug": slug}, slug)
}

func (r *mongoOrganizationRepository) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	return r.findOne(ctx, bson.M{"_id": id}, id)
}

func (r *mongoOrganizationRepository) findOne(ctx context.Context, filter bson.M, key string) (*model.Organization, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var org model.Organization
	err := r.collection.FindOne(ctx, filter).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFoundWithID("Organization", key)
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}
