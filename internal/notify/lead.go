package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/optimumsoft/optimumsoft-web/internal/gateway"
	"github.com/optimumsoft/optimumsoft-web/pkg/logging"
)

// FormatLead renders a submission as the plain text and HTML table the recipient reads.
func FormatLead(sub gateway.Submission) EmailMessage {
	rows := [][2]string{
		{"Name", sub.Name},
		{"Email", sub.Email},
		{"Phone", sub.Phone},
		{"Subject", sub.Subject},
		{"Message", sub.Message},
	}

	var text strings.Builder
	var table strings.Builder
	table.WriteString(`<table border="1" cellpadding="6" cellspacing="0">`)
	for _, row := range rows {
		fmt.Fprintf(&text, "%s: %s\n", row[0], row[1])
		fmt.Fprintf(&table, "<tr><th align=\"left\">%s</th><td>%s</td></tr>",
			row[0], strings.ReplaceAll(html.EscapeString(row[1]), "\n", "<br>"))
	}
	table.WriteString("</table>")

	subject := sub.NotificationSubject
	if subject == "" {
		subject = sub.Subject
	}
	return EmailMessage{
		ReplyTo: sub.Email,
		Subject: subject,
		Body:    text.String(),
		HTML:    table.String(),
		Tags:    map[string]string{"source": sub.Source},
	}
}

// LeadRelay is a gateway that emails each submission to a fixed recipient.
type LeadRelay struct {
	sender    EmailSender
	recipient string
	logger    *logging.Logger
}

// NewLeadRelay wires an email sender as a lead gateway.
func NewLeadRelay(sender EmailSender, recipient string, logger *logging.Logger) (*LeadRelay, error) {
	if sender == nil || strings.TrimSpace(recipient) == "" {
		return nil, gateway.ErrNotConfigured
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LeadRelay{sender: sender, recipient: strings.TrimSpace(recipient), logger: logger}, nil
}

// Submit emails the submission. Send errors wrap gateway.ErrSubmissionFailed.
func (r *LeadRelay) Submit(ctx context.Context, sub gateway.Submission) error {
	msg := FormatLead(sub)
	msg.To = r.recipient
	if err := r.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", gateway.ErrSubmissionFailed, err)
	}
	r.logger.Info("lead emailed", "source", sub.Source)
	return nil
}

var _ gateway.Gateway = (*LeadRelay)(nil)
