package repository

import (
	"context"
	"errors"
	"fmt"
	shelterserrors "shelterbook/internal/shelters/errors"
	"shelterbook/internal/shelters/spatial"
	"shelterbook/pkg/config"
	mongotx "shelterbook/pkg/db/mongo"
	"shelterbook/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Shelters"
)

type mongoShelterRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type ShelterRepository interface {
	Create(ctx context.Context, shelter *model.Shelter) error
	FindByID(ctx context.Context, id string) (*model.Shelter, error)
	Update(ctx context.Context, id string, shelter *model.Shelter) error
	Delete(ctx context.Context, id string) error

	// Search returns shelters inside box (all shelters when box is nil)
	// ordered by name then id, truncated to limit when limit > 0.
	Search(ctx context.Context, box *spatial.Box, limit int) ([]*model.Shelter, error)

	// BumpBookingVersion increments the shelter's booking version and returns
	// the updated shelter. Called first inside an admission transaction, it
	// makes concurrent admissions for the same shelter conflict.
	BumpBookingVersion(ctx context.Context, id string) (*model.Shelter, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoShelterRepository(cfg *config.Config) ShelterRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoShelterRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext is returned unchanged with a no-op cancel.
func (r *mongoShelterRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoShelterRepository) Create(ctx context.Context, shelter *model.Shelter) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	shelter.CreatedAt = now
	shelter.UpdatedAt = now
	shelter.BookingVersion = 0

	result, err := r.collection.InsertOne(ctx, shelter)
	if err != nil {
		return fmt.Errorf("failed to create shelter: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		shelter.ID = oid.Hex()
	}
	return nil
}

func (r *mongoShelterRepository) FindByID(ctx context.Context, id string) (*model.Shelter, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shelterserrors.ErrInvalidID, id)
	}

	var shelter model.Shelter
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&shelter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shelterserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find shelter: %w", err)
	}

	return &shelter, nil
}

func (r *mongoShelterRepository) Update(ctx context.Context, id string, shelter *model.Shelter) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", shelterserrors.ErrInvalidID, id)
	}

	shelter.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	set := bson.M{
		"name":        shelter.Name,
		"description": shelter.Description,
		"capacity":    shelter.Capacity,
		"policy":      shelter.Policy,
		"is_active":   shelter.IsActive,
		"latitude":    shelter.Latitude,
		"longitude":   shelter.Longitude,
		"updated_at":  shelter.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if shelter.ContactPhone == "" {
		update["$unset"] = bson.M{"contact_phone": ""}
	} else {
		set["contact_phone"] = shelter.ContactPhone
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update shelter: %w", err)
	}

	if result.MatchedCount == 0 {
		return shelterserrors.ErrNotFound
	}

	return nil
}

func (r *mongoShelterRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", shelterserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete shelter: %w", err)
	}

	if result.DeletedCount == 0 {
		return shelterserrors.ErrNotFound
	}

	return nil
}

func (r *mongoShelterRepository) Search(ctx context.Context, box *spatial.Box, limit int) ([]*model.Shelter, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{}
	if box != nil {
		filter["latitude"] = bson.M{"$gte": box.MinLat, "$lte": box.MaxLat}
		filter["longitude"] = bson.M{"$gte": box.MinLon, "$lte": box.MaxLon}
	}

	// simple collation compares names byte-wise
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetCollation(&options.Collation{Locale: "simple"})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search shelters: %w", err)
	}
	defer cursor.Close(ctx)

	var shelters []*model.Shelter
	if err = cursor.All(ctx, &shelters); err != nil {
		return nil, fmt.Errorf("failed to decode shelters: %w", err)
	}

	return shelters, nil
}

func (r *mongoShelterRepository) BumpBookingVersion(ctx context.Context, id string) (*model.Shelter, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", shelterserrors.ErrInvalidID, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var shelter model.Shelter
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": objectID},
		bson.M{"$inc": bson.M{"booking_version": 1}},
		opts,
	).Decode(&shelter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, shelterserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to bump booking version: %w", err)
	}

	return &shelter, nil
}

func (r *mongoShelterRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
