package mongo

import (
	"context"
	"fmt"
	"rentio/internal/migrations/mongo/validators"
	"rentio/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	BookingsCollection       = "Bookings"
	PaymentsCollection       = "Payments"
	WebhookEventsCollection  = "Webhook_events"
	RefundRequestsCollection = "Refund_requests"
	ConversationsCollection  = "Conversations"
	NotificationsCollection  = "Notifications"
	BookingHistoryCollection = "Booking_history"
)

var (
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "renter_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{
			{Key: "listing_id", Value: 1},
			{Key: "start_date", Value: 1},
			{Key: "end_date", Value: 1},
		}},
	}

	// A payment is looked up by whichever gateway id the webhook carries.
	PaymentsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_id", Value: 1}}},
		{
			Keys: bson.D{{Key: "checkout_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkout_id": bson.M{"$type": "string"}}),
		},
		{
			Keys: bson.D{{Key: "provider_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"provider_id": bson.M{"$type": "string"}}),
		},
	}

	// Uniqueness of the ledger comes from _id.
	WebhookEventsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "provider", Value: 1}, {Key: "received_at", Value: -1}}},
	}

	// At most one open refund request per booking.
	RefundRequestsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("booking_id_pending_unique").
				SetPartialFilterExpression(bson.M{"status": "PENDING"}),
		},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	}

	ConversationsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "participants.user_id", Value: 1}}},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
	}

	BookingHistoryIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
	}
)

type CollectionDefinition struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections lists everything the booking services own. Listings and
// Profiles belong to the marketplace and are only read here.
func Collections() []CollectionDefinition {
	return []CollectionDefinition{
		{Name: BookingsCollection, Indexes: BookingsIndexes, Validator: validators.BookingValidator},
		{Name: PaymentsCollection, Indexes: PaymentsIndexes, Validator: validators.PaymentValidator},
		{Name: WebhookEventsCollection, Indexes: WebhookEventsIndexes, Validator: validators.WebhookEventValidator},
		{Name: RefundRequestsCollection, Indexes: RefundRequestsIndexes, Validator: validators.RefundRequestValidator},
		{Name: ConversationsCollection, Indexes: ConversationsIndexes, Validator: validators.ConversationValidator},
		{Name: NotificationsCollection, Indexes: NotificationsIndexes, Validator: validators.NotificationValidator},
		{Name: BookingHistoryCollection, Indexes: BookingHistoryIndexes, Validator: validators.BookingHistoryValidator},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	created, err := db.Collection(name).Indexes().CreateMany(ctx, models)
	if err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "indexes", created)
	return nil
}
