package repository

import (
	"context"
	"errors"
	"fmt"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	"rentio/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Booking_history"

var ErrDuplicateEvent = errors.New("booking event already recorded")

type HistoryRepository interface {
	// Insert fails with ErrDuplicateEvent when the event id was recorded before.
	Insert(ctx context.Context, entry *model.BookingHistoryEntry) error
}

type mongoHistoryRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoHistoryRepository(cfg *config.Config) HistoryRepository {
	return &mongoHistoryRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoHistoryRepository) Insert(ctx context.Context, entry *model.BookingHistoryEntry) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEvent
		}
		return fmt.Errorf("failed to insert booking history: %w", err)
	}
	return nil
}
