package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"
)

// Lead sources recorded on every submission.
const (
	SourceChat    = "chat"
	SourceContact = "contact"
)

var (
	// ErrSubmissionFailed is wrapped by every gateway failure, transport or HTTP status.
	ErrSubmissionFailed = errors.New("gateway: submission failed")

	// ErrNotConfigured is returned when a gateway has no destination.
	ErrNotConfigured = errors.New("gateway: not configured")
)

// Submission is one lead relayed to a human recipient.
type Submission struct {
	Source              string
	Name                string
	Email               string
	Phone               string
	Subject             string
	Message             string
	NotificationSubject string
}

// Form encodes the submission in the relay's wire format. The control fields disable
// the relay CAPTCHA, request the tabular notification template and fix the
// notification subject line.
func (s Submission) Form() url.Values {
	v := url.Values{}
	v.Set("name", s.Name)
	v.Set("email", s.Email)
	v.Set("phone", s.Phone)
	v.Set("subject", s.Subject)
	v.Set("message", s.Message)
	v.Set("_captcha", "false")
	v.Set("_template", "table")
	v.Set("_subject", s.NotificationSubject)
	return v
}

// Gateway delivers lead submissions.
type Gateway interface {
	Submit(ctx context.Context, sub Submission) error
}

// StatusError reports a non-2xx answer from the relay.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway: relay returned status %d", e.StatusCode)
}

// Unwrap lets callers match ErrSubmissionFailed.
func (e *StatusError) Unwrap() error {
	return ErrSubmissionFailed
}
