package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNewSESSender_NilClient(t *testing.T) {
	assert.Nil(t, NewSESSender(nil, SESConfig{FromEmail: "a@b.co"}, nil))
}

func TestSESSender_BuildsSimpleMessage(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "web@optimumsoft.com"}, nil)
	require.NotNil(t, sender)

	err := sender.Send(context.Background(), EmailMessage{
		To:      "sales@optimumsoft.com",
		ReplyTo: "jane@x.com",
		Subject: "New lead",
		Body:    "plain",
		HTML:    "<p>html</p>",
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	in := client.inputs[0]
	assert.Equal(t, "OptimumSoft Website <web@optimumsoft.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"sales@optimumsoft.com"}, in.Destination.ToAddresses)
	assert.Equal(t, []string{"jane@x.com"}, in.ReplyToAddresses)
	assert.Equal(t, "New lead", aws.ToString(in.Content.Simple.Subject.Data))
	assert.Equal(t, "plain", aws.ToString(in.Content.Simple.Body.Text.Data))
	assert.Equal(t, "<p>html</p>", aws.ToString(in.Content.Simple.Body.Html.Data))
}

func TestSESSender_WrapsErrors(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{FromEmail: "web@optimumsoft.com"}, nil)
	err := sender.Send(context.Background(), EmailMessage{To: "x@y.co", Subject: "s", Body: "b"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSESSender_TagsAndConfigurationSet(t *testing.T) {
	sender := NewSESSender(&fakeSES{}, SESConfig{FromEmail: "web@optimumsoft.com", FromName: "Leads", ConfigurationSet: "website"}, nil)
	in := sender.BuildInput(EmailMessage{
		To:      "sales@optimumsoft.com",
		Subject: "s",
		Body:    "b",
		Tags:    map[string]string{"source": "contact", "skip": ""},
	})
	assert.Equal(t, "Leads <web@optimumsoft.com>", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, "website", aws.ToString(in.ConfigurationSetName))
	require.Len(t, in.EmailTags, 1)
	assert.Equal(t, "source", aws.ToString(in.EmailTags[0].Name))
	assert.Equal(t, "contact", aws.ToString(in.EmailTags[0].Value))
	assert.Nil(t, in.Content.Simple.Body.Html)
}

func TestSESSender_RequiresRecipient(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "web@optimumsoft.com"}, nil)
	assert.ErrorIs(t, sender.Send(context.Background(), EmailMessage{Subject: "s"}), ErrNoRecipient)
	assert.Empty(t, client.inputs)
}
