package email

import (
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService sends drafted replies via SendGrid.
type EmailService struct {
	apiKey    string
	fromEmail string
}

// NewEmailService creates a new email service instance
func NewEmailService(apiKey, fromEmail string) *EmailService {
	return &EmailService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
	}
}

// SendDraft delivers a generated reply to the counterparty. The from
// address is the configured sending identity, not the reply author's
// mailbox; most providers reject arbitrary from addresses.
func (es *EmailService) SendDraft(to, subject, body string) error {
	if es.apiKey == "" {
		return fmt.Errorf("SendGrid API key not configured")
	}
	if es.fromEmail == "" {
		return fmt.Errorf("sender address not configured")
	}

	from := mail.NewEmail("", es.fromEmail)
	recipient := mail.NewEmail("", to)
	message := mail.NewSingleEmail(from, subject, recipient, body, body)

	client := sendgrid.NewSendClient(es.apiKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	if response.StatusCode >= 400 {
		return fmt.Errorf("SendGrid API error: status %d, body: %s", response.StatusCode, response.Body)
	}

	return nil
}
