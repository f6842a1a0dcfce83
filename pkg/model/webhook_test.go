package model

import "testing"

func TestTruthy(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want bool
	}{
		{"nil", nil, false},
		{"bool true", true, true},
		{"bool false", false, false},
		{"string true", "true", true},
		{"string TRUE padded", " TRUE ", true},
		{"string 1", "1", true},
		{"string false", "false", false},
		{"string garbage", "yes please", false},
		{"empty string", "", false},
		{"json number", float64(1), true},
		{"json zero", float64(0), false},
		{"object", map[string]any{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Truthy(tt.in); got != tt.want {
				t.Errorf("Truthy(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWebhookPayload_RequiresConfirmation(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
		want     bool
	}{
		{"no metadata", nil, false},
		{"instant book", map[string]any{"instant_book": true}, false},
		{"not instant book", map[string]any{"instant_book": false}, true},
		{"requires confirmation flag", map[string]any{"requires_confirmation": "true"}, true},
		{"flag wins over instant book", map[string]any{"requires_confirmation": true, "instant_book": true}, true},
		{"null instant book", map[string]any{"instant_book": nil}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &WebhookPayload{ID: "chk_1", Status: "succeeded", Metadata: tt.metadata}
			if got := p.RequiresConfirmation(); got != tt.want {
				t.Errorf("RequiresConfirmation() = %v, want %v", got, tt.want)
			}
		})
	}
}
