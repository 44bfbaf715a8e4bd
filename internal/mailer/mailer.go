package mailer

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	gomail "gopkg.in/gomail.v2"

	"github.com/aiarcade/aiarcade/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Dispatcher has one contract: deliver this code to this address or fail.
// Handlers own dispatch; the auth service never sees this interface.
type Dispatcher interface {
	SendVerificationCode(to, username, code string) error
	SendPasswordReset(to, username, code string) error
}

var _ Dispatcher = (*SMTPSender)(nil)

type SMTPSender struct {
	dialer    *gomail.Dialer
	from      string
	templates *template.Template
}

func NewSMTPSender(cfg config.SMTPConfig) (*SMTPSender, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &SMTPSender{
		dialer:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:      cfg.From,
		templates: tmpl,
	}, nil
}

func (s *SMTPSender) send(to, subject, templateName string, data any) error {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, templateName, data); err != nil {
		return fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", buf.String())

	return s.dialer.DialAndSend(m)
}

func (s *SMTPSender) SendVerificationCode(to, username, code string) error {
	return s.send(to, "Verify your aiarcade email", "verification_code.html", map[string]string{
		"Username": username,
		"Code":     code,
	})
}

func (s *SMTPSender) SendPasswordReset(to, username, code string) error {
	return s.send(to, "Reset your aiarcade password", "password_reset.html", map[string]string{
		"Username": username,
		"Code":     code,
	})
}
