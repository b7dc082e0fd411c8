package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	sent []EmailMessage
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg EmailMessage) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestFormatLead(t *testing.T) {
	msg := FormatLead(gateway.Submission{
		Name:                "Jane <admin>",
		Email:               "jane@x.com",
		Phone:               "1234567890",
		Subject:             "AI Chat Inquiry - Jane",
		Message:             "line one\nline two",
		NotificationSubject: "New AI Chat Inquiry from OptimumSoft Website",
	})

	assert.Equal(t, "New AI Chat Inquiry from OptimumSoft Website", msg.Subject)
	assert.Equal(t, "jane@x.com", msg.ReplyTo)
	assert.Contains(t, msg.Body, "Name: Jane <admin>\n")
	assert.Contains(t, msg.HTML, "Jane &lt;admin&gt;")
	assert.Contains(t, msg.HTML, "line one<br>line two")
}

func TestFormatLead_FallsBackToSubject(t *testing.T) {
	msg := FormatLead(gateway.Submission{Subject: "Hello"})
	assert.Equal(t, "Hello", msg.Subject)
}

func TestLeadRelay(t *testing.T) {
	_, err := NewLeadRelay(nil, "sales@example.com", nil)
	assert.ErrorIs(t, err, gateway.ErrNotConfigured)

	sender := &recordingSender{}
	relay, err := NewLeadRelay(sender, " sales@example.com ", nil)
	require.NoError(t, err)

	require.NoError(t, relay.Submit(context.Background(), gateway.Submission{Name: "Jane", Subject: "Hi"}))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "sales@example.com", sender.sent[0].To)

	sender.err = errors.New("down")
	err = relay.Submit(context.Background(), gateway.Submission{Name: "Jane"})
	assert.ErrorIs(t, err, gateway.ErrSubmissionFailed)
}
