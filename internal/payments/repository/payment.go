package repository

import (
	"context"
	"errors"
	"fmt"
	paymentserrors "rentio/internal/payments/errors"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	"rentio/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	PaymentsCollection = "Payments"
	LedgerCollection   = "Webhook_events"
)

type PaymentRepository interface {
	// FindByGatewayID matches checkout_id first and provider_id second.
	FindByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error)
	UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) error
}

type mongoPaymentRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPaymentRepository(cfg *config.Config) PaymentRepository {
	return &mongoPaymentRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(PaymentsCollection),
	}
}

func (r *mongoPaymentRepository) FindByGatewayID(ctx context.Context, gatewayID string) (*model.Payment, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	for _, field := range []string{"checkout_id", "provider_id"} {
		var payment model.Payment
		err := r.collection.FindOne(ctx, bson.M{field: gatewayID}).Decode(&payment)
		if err == nil {
			return &payment, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to find payment by %s: %w", field, err)
		}
	}
	return nil, paymentserrors.ErrPaymentNotFound
}

func (r *mongoPaymentRepository) UpdateStatus(ctx context.Context, id string, status model.PaymentStatus) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"status":     status,
		"updated_at": time.Now().UTC().Truncate(time.Millisecond),
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if result.MatchedCount == 0 {
		return paymentserrors.ErrPaymentNotFound
	}
	return nil
}
