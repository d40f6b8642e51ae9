package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"orari/internal/migrations/mongo/validators"
)

var (
	OrganizationsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	ServicesIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "org_id", Value: 1},
			{Key: "assignee_ids", Value: 1},
		}},
	}

	WeeklyWindowsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "org_id", Value: 1},
			{Key: "scope", Value: 1},
			{Key: "owner_id", Value: 1},
			{Key: "weekday", Value: 1},
		}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "org_id", Value: 1},
			{Key: "start", Value: 1},
			{Key: "end", Value: 1},
		}},
		{Keys: bson.D{
			{Key: "service_id", Value: 1},
			{Key: "start", Value: 1},
		}},
	}

	// Stale locks fall out on their own; releases are best-effort.
	BookingLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	SettingsFreezesIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "org_id", Value: 1}}},
		{Keys: bson.D{
			{Key: "service_id", Value: 1},
			{Key: "date", Value: 1},
		}},
	}
)

func RunMigration(ctx context.Context, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	fmt.Printf("🚀 Running Orari Mongo migrations on database: %s\n", dbName)

	collections := map[string]struct {
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		"Organizations": {
			Indexes:   OrganizationsIndexes,
			Validator: validators.OrganizationValidator,
		},
		"Services": {
			Indexes:   ServicesIndexes,
			Validator: validators.ServiceValidator,
		},
		"Weekly_windows": {
			Indexes:   WeeklyWindowsIndexes,
			Validator: validators.WeeklyWindowValidator,
		},
		"Bookings": {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		"Booking_locks": {
			Indexes:   BookingLocksIndexes,
			Validator: validators.BookingLockValidator,
		},
		"Settings_freezes": {
			Indexes:   SettingsFreezesIndexes,
			Validator: validators.SettingsFreezeValidator,
		},
	}

	for name, def := range collections {
		if err := ensureCollection(ctx, db, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	fmt.Println("✅ All migrations applied successfully.")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		fmt.Printf("🆕 Creating collection: %s\n", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
	} else {
		fmt.Printf("ℹ️ Collection %s already exists — updating validator if needed\n", name)
		command := bson.D{
			{Key: "collMod", Value: name},
			{Key: "validator", Value: validator},
		}
		if err := db.RunCommand(ctx, command).Err(); err != nil {
			fmt.Printf("⚠️ Warning: failed updating validator for %s: %v\n", name, err)
		}
	}

	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel) error {
	coll := db.Collection(name)
	_, err := coll.Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	fmt.Printf("📚 Ensured indexes for %s\n", name)
	return nil
}
