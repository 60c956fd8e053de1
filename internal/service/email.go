package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/surdiana/auth-service/internal/model"
	ctxutil "github.com/surdiana/auth-service/pkg/context"
	"github.com/surdiana/auth-service/pkg/circuit"
	"github.com/surdiana/auth-service/pkg/logger"
	"github.com/surdiana/auth-service/pkg/mail"
)

const verificationEmailTemplate = `
<html>
<body style="font-family: sans-serif;">
  <h2>Welcome, {{ .FirstName | title }}!</h2>
  <p>Confirm your email address to activate your account. The link is valid for {{ .TTLHours }} hours.</p>
  <p><a href="{{ .Link }}">Verify my email</a></p>
  <p>If you did not create this account you can ignore this message.</p>
</body>
</html>`

const passwordResetEmailTemplate = `
<html>
<body style="font-family: sans-serif;">
  <h2>Hello, {{ .FirstName | title }}</h2>
  <p>We received a request to reset your password. The link below is valid for {{ .TTLHours }} hour(s).</p>
  <p><a href="{{ .Link }}">Reset my password</a></p>
  <p>If you did not request a reset, your account is still safe and no action is needed.</p>
</body>
</html>`

const welcomeEmailTemplate = `
<html>
<body style="font-family: sans-serif;">
  <h2>Hi, {{ .FirstName | title }}!</h2>
  <p>Your email is verified and your account is now active. Enjoy!</p>
</body>
</html>`

// EmailService renders and delivers transactional mail. Deliveries run
// through a circuit breaker so a failing mail provider degrades to
// logged errors instead of piling up blocked requests.
type EmailService struct {
	mailer      mail.Mailer
	breaker     *circuit.Breaker
	frontendURL string

	verificationTmpl *template.Template
	resetTmpl        *template.Template
	welcomeTmpl      *template.Template
}

func NewEmailService(mailer mail.Mailer, breaker *circuit.Breaker, frontendURL string) *EmailService {
	funcs := sprig.FuncMap()

	return &EmailService{
		mailer:           mailer,
		breaker:          breaker,
		frontendURL:      frontendURL,
		verificationTmpl: template.Must(template.New("verification").Funcs(funcs).Parse(verificationEmailTemplate)),
		resetTmpl:        template.Must(template.New("reset").Funcs(funcs).Parse(passwordResetEmailTemplate)),
		welcomeTmpl:      template.Must(template.New("welcome").Funcs(funcs).Parse(welcomeEmailTemplate)),
	}
}

func (s *EmailService) SendVerificationEmail(ctx context.Context, user *model.User, token string, ttlHours int) error {
	link := fmt.Sprintf("%s/verify-email?token=%s", s.frontendURL, token)

	html, err := s.render(s.verificationTmpl, map[string]any{
		"FirstName": user.FirstName,
		"Link":      link,
		"TTLHours":  ttlHours,
	})
	if err != nil {
		return err
	}

	return s.deliver(ctx, user.Email, "Verify your email address", html)
}

func (s *EmailService) SendPasswordResetEmail(ctx context.Context, user *model.User, token string, ttlHours int) error {
	link := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)

	html, err := s.render(s.resetTmpl, map[string]any{
		"FirstName": user.FirstName,
		"Link":      link,
		"TTLHours":  ttlHours,
	})
	if err != nil {
		return err
	}

	return s.deliver(ctx, user.Email, "Reset your password", html)
}

func (s *EmailService) SendWelcomeEmail(ctx context.Context, user *model.User) error {
	html, err := s.render(s.welcomeTmpl, map[string]any{
		"FirstName": user.FirstName,
	})
	if err != nil {
		return err
	}

	return s.deliver(ctx, user.Email, "Welcome aboard", html)
}

func (s *EmailService) render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template: %w", err)
	}
	return buf.String(), nil
}

func (s *EmailService) deliver(ctx context.Context, to, subject, html string) error {
	ctx = ctxutil.NewContextWithOperation(ctx, "email_service", "deliver")

	err := s.breaker.Execute(func() error {
		return s.mailer.SendMail(ctx, &mail.Email{
			Subject: subject,
			Body:    "Please view this message in an HTML capable client.",
			HTML:    html,
			To:      []string{to},
		})
	})

	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to deliver email").
			String("to", to).
			String("subject", subject).
			Err(err).
			Log()
		return err
	}

	logger.InfoWithContext(ctx, "Email delivered").
		String("to", to).
		String("subject", subject).
		Log()

	return nil
}
