// Package authz holds the single authorization policy for booking actions.
package authz

import (
	"errors"
	"rentio/pkg/auth"
	"rentio/pkg/model"
)

type Action string

const (
	ActionView          Action = "view"
	ActionConfirm       Action = "confirm"
	ActionReject        Action = "reject"
	ActionCancel        Action = "cancel"
	ActionStart         Action = "start"
	ActionComplete      Action = "complete"
	ActionRequestRefund Action = "request_refund"
	ActionApproveRefund Action = "approve_refund"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("not allowed to perform this action on the booking")
	ErrUnknownAction   = errors.New("unknown booking action")
)

type party int

const (
	partyRenter party = 1 << iota
	partyOwner
	partyAdmin
)

var policy = map[Action]party{
	ActionView:          partyRenter | partyOwner | partyAdmin,
	ActionConfirm:       partyOwner | partyAdmin,
	ActionReject:        partyOwner | partyAdmin,
	ActionCancel:        partyRenter | partyOwner | partyAdmin,
	ActionStart:         partyOwner | partyAdmin,
	ActionComplete:      partyOwner | partyAdmin,
	ActionRequestRefund: partyRenter,
	ActionApproveRefund: partyAdmin,
}

// Authorize reports whether user may perform action on booking. booking may be
// nil for actions that are not tied to a booking party (refund approval).
func Authorize(user *auth.User, action Action, booking *model.Booking) error {
	if user == nil || user.ID == "" {
		return ErrUnauthenticated
	}

	allowed, ok := policy[action]
	if !ok {
		return ErrUnknownAction
	}

	if allowed&partiesOf(user, booking) == 0 {
		return ErrForbidden
	}
	return nil
}

func partiesOf(user *auth.User, booking *model.Booking) party {
	var p party
	if user.IsAdmin() {
		p |= partyAdmin
	}
	if booking == nil {
		return p
	}
	if booking.RenterID == user.ID {
		p |= partyRenter
	}
	if booking.OwnerID != "" && booking.OwnerID == user.ID {
		p |= partyOwner
	}
	return p
}
