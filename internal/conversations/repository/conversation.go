package repository

import (
	"context"
	"errors"
	"fmt"
	"rentio/pkg/config"
	mongotx "rentio/pkg/db/mongo"
	"rentio/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const CollectionName = "Conversations"

var ErrConversationExists = errors.New("conversation already exists for booking")

type ConversationRepository interface {
	FindByBookingID(ctx context.Context, bookingID string) (*model.Conversation, error)
	// Create inserts the conversation. The unique index on booking_id turns a
	// concurrent second insert into ErrConversationExists.
	Create(ctx context.Context, c *model.Conversation) error
}

type mongoConversationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoConversationRepository(cfg *config.Config) ConversationRepository {
	return &mongoConversationRepository{
		cfg:        cfg,
		collection: cfg.Client.Mongo.Database(cfg.MongoDatabaseName).Collection(CollectionName),
	}
}

func (r *mongoConversationRepository) FindByBookingID(ctx context.Context, bookingID string) (*model.Conversation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var conversation model.Conversation
	err := r.collection.FindOne(ctx, bson.M{"booking_id": bookingID}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	return &conversation, nil
}

func (r *mongoConversationRepository) Create(ctx context.Context, c *model.Conversation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConversationExists
		}
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}
