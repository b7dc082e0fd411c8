package leads

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/optimumsoft/optimumsoft-web/internal/chatbot"
	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
)

// ContactNotificationSubject is the subject of the email the relay sends for contact form leads.
const ContactNotificationSubject = "New Contact Form Submission from OptimumSoft Website"

// ContactRequest is the contact form payload.
type ContactRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=120"`
	Email   string `json:"email" validate:"required,leademail"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Normalize trims surrounding whitespace from every field.
func (c *ContactRequest) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Subject = strings.TrimSpace(c.Subject)
	c.Message = strings.TrimSpace(c.Message)
}

// Submission builds the gateway payload. The message is relayed as written.
func (c ContactRequest) Submission() gateway.Submission {
	return gateway.Submission{
		Source:              gateway.SourceContact,
		Name:                c.Name,
		Email:               c.Email,
		Phone:               c.Phone,
		Subject:             c.Subject,
		Message:             c.Message,
		NotificationSubject: ContactNotificationSubject,
	}
}

// FieldError names one rejected contact form field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// newValidator registers the chat's email rule as the leademail tag and reports
// fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("leademail", func(fl validator.FieldLevel) bool {
		return chatbot.ValidEmail(fl.Field().String())
	})
	return v
}

// fieldErrors flattens validator output. Any other error maps to a single entry.
func fieldErrors(err error) []FieldError {
	var out []FieldError
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		return out
	}
	return []FieldError{{Field: "", Rule: err.Error()}}
}
