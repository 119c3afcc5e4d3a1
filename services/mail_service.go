package services

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"

	"github.com/shamsucomsoft/onv-ncne-api/config"
	"github.com/shamsucomsoft/onv-ncne-api/logger"
)

// Mailer sends transactional email.
type Mailer interface {
	SendInvitation(ctx context.Context, to, name, token string) error
	SendWelcome(ctx context.Context, to, name string) error
}

// MailService delivers mail through Resend. Without an API key it only logs.
type MailService struct {
	client *resend.Client
	from   string
	appURL string
}

func NewMailService(cfg config.MailConfig) *MailService {
	s := &MailService{from: cfg.From, appURL: strings.TrimSuffix(cfg.AppURL, "/")}
	if cfg.ResendAPIKey != "" {
		s.client = resend.NewClient(cfg.ResendAPIKey)
	} else {
		logger.L().Warn("⚠️  RESEND_API_KEY not set, outgoing mail will be logged only")
	}
	return s
}

// withBaseURL points the client at another API host.
func (s *MailService) withBaseURL(raw string) error {
	if s.client == nil {
		return nil
	}
	u, err := url.Parse(strings.TrimSuffix(raw, "/") + "/")
	if err != nil {
		return err
	}
	s.client.BaseURL = u
	return nil
}

func (s *MailService) send(ctx context.Context, to, subject, body string) error {
	if s.client == nil {
		logger.L().Info("📡 Mail skipped", zap.String("to", to), zap.String("subject", subject))
		return nil
	}
	res, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	logger.L().Info("✅ Mail sent", zap.String("to", to), zap.String("id", res.Id))
	return nil
}

func (s *MailService) SendInvitation(ctx context.Context, to, name, token string) error {
	link := s.appURL + "/accept-invitation?token=" + url.QueryEscape(token)
	return s.send(ctx, to, "You have been invited", invitationTemplate(name, link))
}

func (s *MailService) SendWelcome(ctx context.Context, to, name string) error {
	return s.send(ctx, to, "Welcome", welcomeTemplate(name))
}

func invitationTemplate(name, link string) string {
	return fmt.Sprintf(`
  <h1>Hello, %s</h1>
  <p>You have been invited to the nomadic skills survey platform. The link below expires in 7 days.</p>
  <a href="%s">Accept invitation</a>
`, html.EscapeString(name), html.EscapeString(link))
}

func welcomeTemplate(name string) string {
	return fmt.Sprintf(`
  <h1>Welcome, %s!</h1>
  <p>Thank you for joining our platform. We're excited to have you on board.</p>
`, html.EscapeString(name))
}
