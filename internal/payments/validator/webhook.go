package validator

import (
	"errors"
	"fmt"
	"rentio/pkg/logger"
	"rentio/pkg/model"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type WebhookValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewWebhookValidator(log *logger.Logger) *WebhookValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &WebhookValidator{
		validate: v,
		logger:   log,
	}
}

// Validate requires id, type, payload, payload.id and payload.status.
func (v *WebhookValidator) Validate(event *model.WebhookEvent) error {
	if event == nil {
		return ValidationErrors{{Field: "body", Message: "body is required"}}
	}
	if err := v.validate.Struct(event); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors
	for _, err := range errs {
		field := strings.TrimPrefix(err.Namespace(), "WebhookEvent.")
		message := err.Error()
		if err.Tag() == "required" {
			message = fmt.Sprintf("%s is required", field)
		}
		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}
	return validationErrors
}
