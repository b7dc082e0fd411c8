package leads

import (
	"strings"
	"time"

	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
)

// Lead is an archived submission from the chat widget or the contact form.
type Lead struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateLeadRequest is the archive input for one delivered submission.
type CreateLeadRequest struct {
	Source  string
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

// Validate validates the create lead request
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return ErrMissingContact
	}
	return nil
}

// RequestFromSubmission maps a relayed submission to its archive record.
func RequestFromSubmission(sub gateway.Submission) *CreateLeadRequest {
	return &CreateLeadRequest{
		Source:  sub.Source,
		Name:    sub.Name,
		Email:   sub.Email,
		Phone:   sub.Phone,
		Subject: sub.Subject,
		Message: sub.Message,
	}
}

// ListLeadsFilter pages through the archive, newest first.
type ListLeadsFilter struct {
	Limit  int
	Offset int
	Source string
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func (f ListLeadsFilter) normalized() ListLeadsFilter {
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = defaultListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
