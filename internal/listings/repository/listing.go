package repository

import (
	"context"
	"errors"
	"fmt"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	"rentio/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ListingsCollection = "Listings"
	ProfilesCollection = "Profiles"
)

var (
	ErrListingNotFound = errors.New("listing not found")
	ErrProfileNotFound = errors.New("profile not found")
)

type ListingRepository interface {
	FindByID(ctx context.Context, id string) (*model.Listing, error)
}

type mongoListingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoListingRepository(cfg *config.Config) ListingRepository {
	return &mongoListingRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(ListingsCollection),
	}
}

func (r *mongoListingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"owner_id": 1, "title": 1, "instant_book": 1})

	var listing model.Listing
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}, opts).Decode(&listing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrListingNotFound
		}
		return nil, fmt.Errorf("failed to find listing: %w", err)
	}
	return &listing, nil
}
