package repository

import (
	"context"
	"errors"
	"fmt"
	bookingserrors "rentio/internal/bookings/errors"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	"rentio/pkg/model"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const RefundsCollectionName = "Refund_requests"

type RefundRepository interface {
	// Create fails with ErrRefundAlreadyRequested while another request for
	// the same booking is pending.
	Create(ctx context.Context, refund *model.RefundRequest) error
	FindByID(ctx context.Context, id string) (*model.RefundRequest, error)
	Approve(ctx context.Context, id, adminID string, at time.Time) (*model.RefundRequest, error)
}

type mongoRefundRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRefundRepository(cfg *config.Config) RefundRepository {
	return &mongoRefundRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(RefundsCollectionName),
	}
}

func (r *mongoRefundRepository) Create(ctx context.Context, refund *model.RefundRequest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if refund.ID == "" {
		refund.ID = uuid.NewString()
	}
	refund.Status = model.RefundPending
	refund.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, refund); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return bookingserrors.ErrRefundAlreadyRequested
		}
		return fmt.Errorf("failed to create refund request: %w", err)
	}
	return nil
}

func (r *mongoRefundRepository) FindByID(ctx context.Context, id string) (*model.RefundRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var refund model.RefundRequest
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&refund); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrRefundNotFound
		}
		return nil, fmt.Errorf("failed to find refund request: %w", err)
	}
	return &refund, nil
}

func (r *mongoRefundRepository) Approve(ctx context.Context, id, adminID string, at time.Time) (*model.RefundRequest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	resolvedAt := at.UTC().Truncate(time.Millisecond)
	update := bson.M{"$set": bson.M{
		"status":      model.RefundApproved,
		"resolved_by": adminID,
		"resolved_at": resolvedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var refund model.RefundRequest
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": model.RefundPending}, update, opts).Decode(&refund)
	if err == nil {
		return &refund, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to approve refund request: %w", err)
	}
	if _, findErr := r.FindByID(ctx, id); findErr != nil {
		return nil, findErr
	}
	return nil, bookingserrors.ErrRefundNotPending
}
