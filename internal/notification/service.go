package notification

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/bher20/shipratemanager/internal/logger"
	"github.com/bher20/shipratemanager/internal/rates"
	"github.com/bher20/shipratemanager/pkg/shipping"
)

// EmailConfig configures the SendGrid change notice.
type EmailConfig struct {
	APIKey   string
	From     string
	FromName string
	// To is a comma separated recipient list.
	To string
}

func (c EmailConfig) Enabled() bool {
	return c.APIKey != "" && c.From != "" && c.To != ""
}

type sendFunc func(ctx context.Context, m *mail.SGMailV3) (status int, body string, err error)

// Service emails a summary of every refreshed rate table.
type Service struct {
	cfg  EmailConfig
	send sendFunc
}

func NewService(cfg EmailConfig) *Service {
	client := sendgrid.NewSendClient(cfg.APIKey)
	return &Service{
		cfg: cfg,
		send: func(ctx context.Context, m *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, m)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
	}
}

func (s *Service) NotifyRefresh(ctx context.Context, res *rates.Result) error {
	if !s.cfg.Enabled() {
		return nil
	}
	subject := fmt.Sprintf("Shipping costs updated (%s)", res.LastChanged)
	return s.SendEmail(ctx, subject, plainSummary(res), htmlSummary(res))
}

// SendEmail sends one message to every configured recipient.
func (s *Service) SendEmail(ctx context.Context, subject, plain, htmlBody string) error {
	recipients := splitRecipients(s.cfg.To)
	if len(recipients) == 0 {
		return errors.New("no recipients configured")
	}

	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.cfg.FromName, s.cfg.From))
	m.Subject = subject
	p := mail.NewPersonalization()
	for _, addr := range recipients {
		p.AddTos(mail.NewEmail("", addr))
	}
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", plain), mail.NewContent("text/html", htmlBody))

	status, body, err := s.send(ctx, m)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("sendgrid error: %d %s", status, body)
	}
	logger.Component("notification").Info().
		Int("recipients", len(recipients)).
		Str("subject", subject).
		Msg("change notice sent")
	return nil
}

func splitRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func plainSummary(res *rates.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The shipping rate document changed on %s.\n", res.LastChanged)
	fmt.Fprintf(&b, "%d rows were stored.\n", res.Rows)
	if len(res.Table) > 0 {
		b.WriteString("\nDesi 0:\n")
		for i, c := range shipping.Carriers() {
			fmt.Fprintf(&b, "  %s: %.2f\n", c.Name, res.Table[0].Costs[i])
		}
	}
	return b.String()
}

func htmlSummary(res *rates.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<p>The shipping rate document changed on <b>%s</b>. %d rows were stored.</p>",
		html.EscapeString(res.LastChanged), res.Rows)
	if len(res.Table) > 0 {
		b.WriteString("<table><tr><th>Carrier</th><th>Desi 0</th></tr>")
		for i, c := range shipping.Carriers() {
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%.2f</td></tr>", html.EscapeString(c.Name), res.Table[0].Costs[i])
		}
		b.WriteString("</table>")
	}
	return b.String()
}
