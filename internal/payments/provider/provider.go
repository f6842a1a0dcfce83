package provider

import (
	"fmt"
	"net/http"
	paymentserrors "rentio/internal/payments/errors"
	"rentio/pkg/model"
	"strings"
)

// Processor authenticates and decodes webhook deliveries from one gateway.
type Processor interface {
	Provider() string
	// Verify reports skipped=true when verification was bypassed because
	// unsigned deliveries are allowed.
	Verify(headers http.Header, body []byte) (skipped bool, err error)
	Parse(body []byte) (*model.WebhookEvent, error)
}

type Registry struct {
	processors map[string]Processor
}

func NewRegistry(processors ...Processor) *Registry {
	r := &Registry{processors: make(map[string]Processor, len(processors))}
	for _, p := range processors {
		r.processors[strings.ToLower(p.Provider())] = p
	}
	return r
}

func (r *Registry) Get(name string) (Processor, error) {
	p, ok := r.processors[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", paymentserrors.ErrUnsupportedProvider, name)
	}
	return p, nil
}
