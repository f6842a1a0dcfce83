package service

import (
	"context"
	"errors"
	"fmt"
	"rentio/internal/conversations/repository"
	"rentio/pkg/logger"
	"rentio/pkg/model"
	"time"
)

type Bootstrapper interface {
	// Bootstrap ensures the renter/owner conversation for the booking exists.
	// created is false when one was already there.
	Bootstrap(ctx context.Context, booking *model.Booking, ownerID string) (created bool, err error)
}

type bootstrapper struct {
	repo repository.ConversationRepository
	log  *logger.Logger
	now  func() time.Time
}

func NewBootstrapper(repo repository.ConversationRepository, log *logger.Logger) Bootstrapper {
	return &bootstrapper{
		repo: repo,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (b *bootstrapper) Bootstrap(ctx context.Context, booking *model.Booking, ownerID string) (bool, error) {
	if ownerID == "" {
		ownerID = booking.OwnerID
	}
	if ownerID == "" {
		return false, fmt.Errorf("booking %s has no owner", booking.ID)
	}

	existing, err := b.repo.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	now := b.now().Truncate(time.Millisecond)
	conversation := &model.Conversation{
		BookingID: booking.ID,
		ListingID: booking.ListingID,
		Participants: []model.Participant{
			{UserID: booking.RenterID, Role: model.ParticipantRenter, JoinedAt: now},
			{UserID: ownerID, Role: model.ParticipantOwner, JoinedAt: now},
		},
		CreatedAt: now,
	}

	if err := b.repo.Create(ctx, conversation); err != nil {
		if errors.Is(err, repository.ErrConversationExists) {
			return false, nil
		}
		return false, err
	}

	b.log.Info("Conversation created",
		"conversation_id", conversation.ID,
		"booking_id", booking.ID,
	)
	return true, nil
}
