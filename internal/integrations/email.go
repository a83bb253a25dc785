package integrations

import (
	"context"
	"errors"
	"net/mail"
	"time"
)

// Email is a transactional email message
type Email struct {
	To      string `json:"to" binding:"required"`
	Subject string `json:"subject" binding:"required"`
	HTML    string `json:"html" binding:"required"`
}

// Validate check recipient address and required field
func (e Email) Validate() error {
	if _, err := mail.ParseAddress(e.To); err != nil {
		return errors.New("invalid recipient address")
	}
	if e.Subject == "" || e.HTML == "" {
		return errors.New("subject and html are required")
	}
	return nil
}

// EmailSender deliver email
type EmailSender interface {
	SendEmail(ctx context.Context, email Email) error
}

// Mailer post email to JSON email API (Resend/SendGrid style) with bearer key
type Mailer struct {
	apiURL string
	apiKey string
	from   string
}

// NewMailer create mailer, disabled when apiURL or apiKey is empty
func NewMailer(apiURL string, apiKey string, from string) *Mailer {
	return &Mailer{apiURL: apiURL, apiKey: apiKey, from: from}
}

// Enabled tell whether mailer has credentials
func (m *Mailer) Enabled() bool {
	return m != nil && m.apiURL != "" && m.apiKey != ""
}

// SendEmail implements EmailSender
func (m *Mailer) SendEmail(ctx context.Context, email Email) error {
	if !m.Enabled() {
		return ErrDisabled
	}
	if err := email.Validate(); err != nil {
		return err
	}

	resp, err := newClient(m.apiURL, 15*time.Second).R().
		SetContext(ctx).
		SetAuthToken(m.apiKey).
		SetBody(map[string]interface{}{
			"from":    m.from,
			"to":      []string{email.To},
			"subject": email.Subject,
			"html":    email.HTML,
		}).
		Post("")
	return checkResponse("email", resp, err)
}
