package validator

import (
	"errors"
	"rentio/pkg/logger"
	"rentio/pkg/model"
	"testing"
)

func TestWebhookValidator_Validate(t *testing.T) {
	v := NewWebhookValidator(logger.Discard())

	valid := func() *model.WebhookEvent {
		return &model.WebhookEvent{
			ID:   "evt_1",
			Type: "payment.succeeded",
			Payload: &model.WebhookPayload{
				ID:     "chk_1",
				Status: "succeeded",
			},
		}
	}

	tests := []struct {
		name      string
		event     *model.WebhookEvent
		wantField string
	}{
		{"nil event", nil, "body"},
		{"missing id", func() *model.WebhookEvent { e := valid(); e.ID = ""; return e }(), "id"},
		{"missing type", func() *model.WebhookEvent { e := valid(); e.Type = ""; return e }(), "type"},
		{"missing payload", func() *model.WebhookEvent { e := valid(); e.Payload = nil; return e }(), "payload"},
		{"missing payload id", func() *model.WebhookEvent { e := valid(); e.Payload.ID = ""; return e }(), "payload.id"},
		{"missing payload status", func() *model.WebhookEvent { e := valid(); e.Payload.Status = ""; return e }(), "payload.status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.event)
			var verrs ValidationErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if verrs[0].Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, verrs[0].Field)
			}
		})
	}

	if err := v.Validate(valid()); err != nil {
		t.Errorf("expected valid event, got %v", err)
	}
}
