package services

import (
	"fmt"
	"html"
	"net/smtp"

	"github.com/dimitrije/teamscope/internal/config"
)

type EmailService struct {
	cfg config.SMTPConfig
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return smtp.SendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// SendRoleAssigned tells a user which role they now hold on a team.
func (s *EmailService) SendRoleAssigned(to, firstName, teamName, roleName, teamURL string) error {
	subject := fmt.Sprintf("Your role on %s", teamName)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Team Role Updated</h2>
			<p>Hi %s,</p>
			<p>You are now <strong>%s</strong> on the team <strong>%s</strong>.</p>
			<p><a href="%s">Open the team</a></p>
		</body>
		</html>
	`, html.EscapeString(firstName), html.EscapeString(roleName), html.EscapeString(teamName), teamURL)

	return s.Send(to, subject, body)
}
