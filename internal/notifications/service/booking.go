package service

import (
	"context"
	"fmt"
	"rentio/internal/listings/repository"
	"rentio/internal/notifications/mailer"
	"rentio/pkg/logger"
	"rentio/pkg/model"
	"strings"
)

const dateLayout = "2 Jan 2006"

// BookingContext carries what every booking notification needs.
type BookingContext struct {
	Booking *model.Booking
	Listing *model.Listing
	Reason  string
	// ActorID is the user who triggered the change; they are not notified
	// about their own action.
	ActorID string
}

// BookingNotifier is the set of booking lifecycle notifications. None of the
// methods return errors: every failure is logged by the implementation.
type BookingNotifier interface {
	PaymentAwaitingConfirmation(ctx context.Context, bc BookingContext)
	InstantBookConfirmed(ctx context.Context, bc BookingContext)
	PaymentFailed(ctx context.Context, bc BookingContext)
	OwnerConfirmed(ctx context.Context, bc BookingContext)
	Rejected(ctx context.Context, bc BookingContext)
	Cancelled(ctx context.Context, bc BookingContext)
	Started(ctx context.Context, bc BookingContext)
	Completed(ctx context.Context, bc BookingContext)
	RefundRequested(ctx context.Context, bc BookingContext)
	RefundApproved(ctx context.Context, bc BookingContext)
}

type dispatcher interface {
	Dispatch(ctx context.Context, delivery Delivery)
}

type bookingNotifier struct {
	dispatcher dispatcher
	profiles   repository.ProfileRepository
	renderer   *mailer.Renderer
	baseURL    string
	log        *logger.Logger
}

func NewBookingNotifier(
	d dispatcher,
	profiles repository.ProfileRepository,
	renderer *mailer.Renderer,
	baseURL string,
	log *logger.Logger,
) BookingNotifier {
	return &bookingNotifier{
		dispatcher: d,
		profiles:   profiles,
		renderer:   renderer,
		baseURL:    strings.TrimRight(baseURL, "/"),
		log:        log,
	}
}

type parties struct {
	renter *model.Profile
	owner  *model.Profile
}

func (n *bookingNotifier) PaymentAwaitingConfirmation(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)
	title := listingTitle(bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, ownerID(bc), model.NotificationBookingRequest,
			"New booking request",
			fmt.Sprintf("You have a new paid booking request for %s. Please accept or decline it.", title),
			true),
		Emails: n.emails(bc, p.owner, p.renter,
			emailTemplate{mailer.TemplateBookingRequest, "New booking request for " + title}),
	})

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingConfirmed,
			"Payment received",
			fmt.Sprintf("Payment received for %s. Your booking is awaiting confirmation from the owner.", title),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplatePaymentReceipt, "Payment receipt for " + bc.Booking.BookingNumber},
			emailTemplate{mailer.TemplateAwaitingConfirmation, "Your booking is awaiting confirmation"}),
	})
}

func (n *bookingNotifier) InstantBookConfirmed(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)
	title := listingTitle(bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingConfirmed,
			"Booking confirmed",
			fmt.Sprintf("Your booking for %s is confirmed.", title),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplatePaymentReceipt, "Payment receipt for " + bc.Booking.BookingNumber},
			emailTemplate{mailer.TemplateBookingConfirmed, "Your booking is confirmed"}),
	})

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, ownerID(bc), model.NotificationBookingConfirmed,
			"New booking confirmed",
			fmt.Sprintf("%s was booked and confirmed instantly.", title),
			true),
		Emails: n.emails(bc, p.owner, p.renter,
			emailTemplate{mailer.TemplateOwnerBookingConfirmed, "New booking for " + title}),
	})
}

func (n *bookingNotifier) PaymentFailed(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingCancelled,
			"Payment failed",
			fmt.Sprintf("Your payment for %s failed and the booking was cancelled.", listingTitle(bc)),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplatePaymentFailed, "Your payment did not go through"}),
	})
}

func (n *bookingNotifier) OwnerConfirmed(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingConfirmed,
			"Booking confirmed",
			fmt.Sprintf("The owner accepted your booking for %s.", listingTitle(bc)),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplateBookingConfirmed, "Your booking is confirmed"}),
	})
}

func (n *bookingNotifier) Rejected(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingRejected,
			"Booking declined",
			fmt.Sprintf("The owner declined your booking for %s.", listingTitle(bc)),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplateBookingRejected, "Your booking request was declined"}),
	})
}

// Cancelled notifies every party except the one who cancelled.
func (n *bookingNotifier) Cancelled(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)
	title := listingTitle(bc)
	subject := fmt.Sprintf("Booking %s was cancelled", bc.Booking.BookingNumber)

	if bc.ActorID != bc.Booking.RenterID {
		n.deliver(ctx, bc, Delivery{
			Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingCancelled,
				"Booking cancelled",
				fmt.Sprintf("Your booking for %s was cancelled.", title),
				true),
			Emails: n.emails(bc, p.renter, p.owner, emailTemplate{mailer.TemplateBookingCancelled, subject}),
		})
	}
	if bc.ActorID != ownerID(bc) {
		n.deliver(ctx, bc, Delivery{
			Notification: n.notification(bc, ownerID(bc), model.NotificationBookingCancelled,
				"Booking cancelled",
				fmt.Sprintf("The booking for %s was cancelled.", title),
				true),
			Emails: n.emails(bc, p.owner, p.renter, emailTemplate{mailer.TemplateBookingCancelled, subject}),
		})
	}
}

func (n *bookingNotifier) Started(ctx context.Context, bc BookingContext) {
	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingStarted,
			"Rental started",
			fmt.Sprintf("Your rental of %s has started.", listingTitle(bc)),
			false),
	})
}

func (n *bookingNotifier) Completed(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)
	title := listingTitle(bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationBookingCompleted,
			"Rental completed",
			fmt.Sprintf("Your rental of %s is complete.", title),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplateBookingCompleted, "Your rental is complete"}),
	})
	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, ownerID(bc), model.NotificationBookingCompleted,
			"Rental completed",
			fmt.Sprintf("The rental of %s is complete.", title),
			false),
	})
}

func (n *bookingNotifier) RefundRequested(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, ownerID(bc), model.NotificationRefundRequested,
			"Refund requested",
			fmt.Sprintf("The renter requested a refund for booking %s.", bc.Booking.BookingNumber),
			true),
		Emails: n.emails(bc, p.owner, p.renter,
			emailTemplate{mailer.TemplateRefundRequested, "Refund requested for " + bc.Booking.BookingNumber}),
	})
}

func (n *bookingNotifier) RefundApproved(ctx context.Context, bc BookingContext) {
	p := n.loadParties(ctx, bc)

	n.deliver(ctx, bc, Delivery{
		Notification: n.notification(bc, bc.Booking.RenterID, model.NotificationRefundApproved,
			"Refund approved",
			fmt.Sprintf("Your refund for booking %s was approved.", bc.Booking.BookingNumber),
			true),
		Emails: n.emails(bc, p.renter, p.owner,
			emailTemplate{mailer.TemplateRefundApproved, "Your refund was approved"}),
	})
}

// deliver drops deliveries whose recipient could not be resolved, which
// happens for bookings without owner_id whose listing is missing.
func (n *bookingNotifier) deliver(ctx context.Context, bc BookingContext, d Delivery) {
	if d.Notification != nil && d.Notification.UserID == "" {
		n.log.Warn("Skipping notification without recipient",
			"booking_id", bc.Booking.ID,
			"type", d.Notification.Type,
		)
		return
	}
	n.dispatcher.Dispatch(ctx, d)
}

type emailTemplate struct {
	template mailer.TemplateName
	subject  string
}

func (n *bookingNotifier) notification(
	bc BookingContext,
	userID string,
	typ model.NotificationType,
	title, message string,
	withEmail bool,
) *model.Notification {
	channels := []model.NotificationChannel{model.ChannelPush}
	if withEmail {
		channels = append(channels, model.ChannelEmail)
	}
	return &model.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
		Data: map[string]any{
			"booking_id":     bc.Booking.ID,
			"booking_number": bc.Booking.BookingNumber,
			"listing_id":     bc.Booking.ListingID,
		},
		Channels: channels,
	}
}

// emails renders the given templates for recipient. A missing recipient profile
// yields no emails; the in-app notification is still written.
func (n *bookingNotifier) emails(bc BookingContext, recipient, counterpart *model.Profile, templates ...emailTemplate) []mailer.Email {
	if recipient == nil || recipient.Email == "" {
		return nil
	}

	out := make([]mailer.Email, 0, len(templates))
	for _, et := range templates {
		data := n.templateData(bc, recipient, counterpart)
		data.Subject = et.subject

		html, err := n.renderer.Render(et.template, data)
		if err != nil {
			n.log.Error("Failed to render email",
				"template", et.template,
				"booking_id", bc.Booking.ID,
				"error", err,
			)
			continue
		}
		out = append(out, mailer.Email{
			To:       recipient.Email,
			Subject:  et.subject,
			HTML:     html,
			Template: string(et.template),
			Tags: map[string]string{
				"template":   string(et.template),
				"booking_id": bc.Booking.ID,
			},
		})
	}
	return out
}

func (n *bookingNotifier) templateData(bc BookingContext, recipient, counterpart *model.Profile) mailer.TemplateData {
	b := bc.Booking
	data := mailer.TemplateData{
		RecipientName: recipient.DisplayName(),
		BookingNumber: b.BookingNumber,
		ListingTitle:  listingTitle(bc),
		StartDate:     b.StartDate.Format(dateLayout),
		EndDate:       b.EndDate.Format(dateLayout),
		Nights:        b.Nights(),
		Subtotal:      mailer.FormatZAR(b.Subtotal),
		ServiceFee:    mailer.FormatZAR(b.ServiceFee),
		Total:         mailer.FormatZAR(b.TotalAmount),
		Reason:        bc.Reason,
	}
	if b.DeliveryFee > 0 {
		data.DeliveryFee = mailer.FormatZAR(b.DeliveryFee)
	}
	if b.DepositAmount > 0 {
		data.Deposit = mailer.FormatZAR(b.DepositAmount)
	}
	if counterpart != nil {
		data.CounterpartName = counterpart.DisplayName()
	} else {
		data.CounterpartName = "A Rentio user"
	}
	if n.baseURL != "" && b.ID != "" {
		data.BookingURL = n.baseURL + "/bookings/" + b.ID
	}
	return data
}

func (n *bookingNotifier) loadParties(ctx context.Context, bc BookingContext) parties {
	return parties{
		renter: n.loadProfile(ctx, bc.Booking.RenterID),
		owner:  n.loadProfile(ctx, ownerID(bc)),
	}
}

func (n *bookingNotifier) loadProfile(ctx context.Context, userID string) *model.Profile {
	if userID == "" {
		return nil
	}
	profile, err := n.profiles.FindByID(ctx, userID)
	if err != nil {
		n.log.Warn("Failed to load profile for email", "user_id", userID, "error", err)
		return nil
	}
	return profile
}

func ownerID(bc BookingContext) string {
	if bc.Listing != nil && bc.Listing.OwnerID != "" {
		return bc.Listing.OwnerID
	}
	return bc.Booking.OwnerID
}

func listingTitle(bc BookingContext) string {
	if bc.Listing != nil && bc.Listing.Title != "" {
		return bc.Listing.Title
	}
	return "your rental"
}
