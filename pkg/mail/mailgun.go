package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/mailgun/mailgun-go/v4"
)

// Email describes a single outbound message
type Email struct {
	Subject string
	Body    string
	HTML    string
	To      []string
}

// Mailer sends transactional email
type Mailer interface {
	SendMail(ctx context.Context, e *Email) error
}

// Mailgun is the production Mailer backed by the Mailgun HTTP API
type Mailgun struct {
	domain      string
	apiKey      string
	apiBase     string
	sender      string
	senderName  string
	sendTimeout time.Duration
}

func NewMailer(domain, apiKey, apiBase, sender, senderName string, sendTimeout time.Duration) *Mailgun {
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}

	return &Mailgun{
		domain:      domain,
		apiKey:      apiKey,
		apiBase:     apiBase,
		sender:      sender,
		senderName:  senderName,
		sendTimeout: sendTimeout,
	}
}

func (m *Mailgun) SendMail(ctx context.Context, e *Email) error {
	mg := mailgun.NewMailgun(m.domain, m.apiKey)
	if m.apiBase != "" {
		mg.SetAPIBase(m.apiBase)
	}

	from := m.sender
	if m.senderName != "" {
		from = fmt.Sprintf("%s <%s>", m.senderName, m.sender)
	}

	message := mg.NewMessage(from, e.Subject, e.Body, e.To...)
	if e.HTML != "" {
		message.SetHtml(e.HTML)
	}

	ctx, cancel := context.WithTimeout(ctx, m.sendTimeout)
	defer cancel()

	_, _, err := mg.Send(ctx, message)
	if err != nil {
		return err
	}

	return nil
}
