package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type fakeSendGrid struct {
	status int
	err    error
	got    *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(_ context.Context, m *mail.SGMailV3) (*rest.Response, error) {
	f.got = m
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	if sender := NewSendGridSender(SendGridConfig{FromEmail: "desk@mediconnect.in"}, nil); sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "desk@mediconnect.in"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "MediConnect" {
		t.Errorf("expected default from name 'MediConnect', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send(t *testing.T) {
	client := &fakeSendGrid{status: 202}
	sender := &SendGridSender{client: client, fromEmail: "desk@mediconnect.in", fromName: "MediConnect", logger: NewStubEmailSender(nil).logger}

	if err := sender.Send(context.Background(), EmailMessage{To: "p@example.com", Subject: "Hi", Body: "Hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.got == nil || client.got.Subject != "Hi" {
		t.Fatalf("expected subject to be forwarded, got %+v", client.got)
	}
}

func TestSendGridSender_SendErrorStatus(t *testing.T) {
	sender := &SendGridSender{client: &fakeSendGrid{status: 401}, logger: NewStubEmailSender(nil).logger}
	err := sender.Send(context.Background(), EmailMessage{To: "p@example.com", Subject: "Hi"})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	if err := sender.Send(context.Background(), EmailMessage{To: "p@example.com"}); err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	sender := NewSESSender(client, SESConfig{FromEmail: "desk@mediconnect.in"}, nil)

	err := sender.Send(context.Background(), EmailMessage{To: "ops@lotuscare.in", Subject: "Drill", Body: "text", HTML: "<p>html</p>"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(client.input.FromEmailAddress); got != "MediConnect <desk@mediconnect.in>" {
		t.Errorf("unexpected from address %q", got)
	}
	if client.input.Content.Simple.Body.Html == nil || client.input.Content.Simple.Body.Text == nil {
		t.Error("expected both text and html bodies")
	}
}

func TestSESSender_SendError(t *testing.T) {
	sender := NewSESSender(&fakeSES{err: errors.New("throttled")}, SESConfig{}, nil)
	if err := sender.Send(context.Background(), EmailMessage{To: "ops@lotuscare.in"}); err == nil {
		t.Error("expected error")
	}
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{}, nil) != nil {
		t.Error("expected nil sender without client")
	}
}

func TestMailer_SendWelcome(t *testing.T) {
	stub := NewStubEmailSender(nil)
	if err := NewMailer(stub).SendWelcome(context.Background(), "new@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sent := stub.Sent()
	if len(sent) != 1 || sent[0].To != "new@example.com" || sent[0].Subject != "Welcome to MediConnect" {
		t.Fatalf("unexpected messages: %+v", sent)
	}
}

func TestMailer_SendAnnouncementEscapesHTML(t *testing.T) {
	stub := NewStubEmailSender(nil)
	err := NewMailer(stub).SendAnnouncement(context.Background(), "ops@lotuscare.in", "Lotus Care Hospital", "<b>Drill</b>", "Floor 2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msg := stub.Sent()[0]
	if msg.Subject != "[Lotus Care Hospital] <b>Drill</b>" {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if strings.Contains(msg.HTML, "<b>") {
		t.Errorf("expected escaped html, got %q", msg.HTML)
	}
}

func TestMailer_RequiresRecipient(t *testing.T) {
	if err := NewMailer(NewStubEmailSender(nil)).SendWelcome(context.Background(), " "); err == nil {
		t.Error("expected error for empty recipient")
	}
}
