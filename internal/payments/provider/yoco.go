package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	paymentserrors "rentio/internal/payments/errors"
	"rentio/internal/payments/signature"
	"rentio/pkg/model"
)

type Yoco struct {
	verifier *signature.Verifier
}

func NewYoco(verifier *signature.Verifier) *Yoco {
	return &Yoco{verifier: verifier}
}

func (y *Yoco) Provider() string {
	return model.ProviderYoco
}

func (y *Yoco) Verify(headers http.Header, body []byte) (bool, error) {
	return y.verifier.Verify(signature.Headers{
		ID:        headers.Get(signature.HeaderID),
		Timestamp: headers.Get(signature.HeaderTimestamp),
		Signature: headers.Get(signature.HeaderSignature),
	}, body)
}

// Parse decodes the event envelope. Metadata numbers are kept as float64.
func (y *Yoco) Parse(body []byte) (*model.WebhookEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("%w: empty body", paymentserrors.ErrMalformedPayload)
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", paymentserrors.ErrMalformedPayload, err)
	}
	return &event, nil
}
