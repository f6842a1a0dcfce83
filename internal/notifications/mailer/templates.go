package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"strings"
)

type TemplateName string

const (
	TemplatePaymentReceipt        TemplateName = "payment_receipt"
	TemplateBookingConfirmed      TemplateName = "booking_confirmed"
	TemplateAwaitingConfirmation  TemplateName = "awaiting_confirmation"
	TemplateBookingRequest        TemplateName = "booking_request"
	TemplateOwnerBookingConfirmed TemplateName = "owner_booking_confirmed"
	TemplatePaymentFailed         TemplateName = "payment_failed"
	TemplateBookingRejected       TemplateName = "booking_rejected"
	TemplateBookingCancelled      TemplateName = "booking_cancelled"
	TemplateBookingCompleted      TemplateName = "booking_completed"
	TemplateRefundRequested       TemplateName = "refund_requested"
	TemplateRefundApproved        TemplateName = "refund_approved"
)

//go:embed templates/*.html
var templateFS embed.FS

// TemplateData is the view model shared by every email template. Money fields
// are preformatted.
type TemplateData struct {
	Subject         string
	RecipientName   string
	CounterpartName string
	BookingNumber   string
	ListingTitle    string
	StartDate       string
	EndDate         string
	Nights          int
	Subtotal        string
	ServiceFee      string
	DeliveryFee     string
	Deposit         string
	Total           string
	Reason          string
	BookingURL      string
}

type Renderer struct {
	templates map[TemplateName]*template.Template
}

func NewRenderer() (*Renderer, error) {
	layout, err := template.ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	r := &Renderer{templates: make(map[TemplateName]*template.Template, len(files))}
	for _, file := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		if name == "layout" {
			continue
		}
		base, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		tmpl, err := base.ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse email template %s: %w", name, err)
		}
		r.templates[TemplateName(name)] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(name TemplateName, data TemplateData) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("failed to render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
