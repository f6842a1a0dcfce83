package repository

import (
	"context"
	"fmt"
	paymentserrors "rentio/internal/payments/errors"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	"rentio/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// LedgerRepository records processed gateway event ids. The event id is the
// document _id, so a second insert for the same event fails.
type LedgerRepository interface {
	Record(ctx context.Context, entry *model.ProcessedWebhook) error
}

type mongoLedgerRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLedgerRepository(cfg *config.Config) LedgerRepository {
	return &mongoLedgerRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(LedgerCollection),
	}
}

func (r *mongoLedgerRepository) Record(ctx context.Context, entry *model.ProcessedWebhook) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return paymentserrors.ErrEventAlreadyProcessed
		}
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	return nil
}
