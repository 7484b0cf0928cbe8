package services

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"chatwave-api/config"
)

// EmailService is the narrow boundary to the mail collaborator. The core
// only uses it as a best-effort fallback when a notification target has
// no live connection; failures are logged and never propagate.
type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	return &EmailService{
		config: cfg,
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendFriendRequestEmail tells an offline user someone wants to connect.
func (es *EmailService) SendFriendRequestEmail(toEmail, toName, fromName string) error {
	subject := fmt.Sprintf("%s sent you a friend request", fromName)
	body := fmt.Sprintf("Hi %s,\n\n%s sent you a friend request on ChatWave. Log in to respond.\n", toName, fromName)
	return es.send(toEmail, subject, body)
}

// SendGroupInviteEmail tells an offline user they were added to a group.
func (es *EmailService) SendGroupInviteEmail(toEmail, toName, groupName string) error {
	subject := fmt.Sprintf("You were added to %s", groupName)
	body := fmt.Sprintf("Hi %s,\n\nYou were added to the group \"%s\" on ChatWave.\n", toName, groupName)
	return es.send(toEmail, subject, body)
}

func (es *EmailService) send(toEmail, subject, body string) error {
	m := gomail.NewMessage()
	m.SetAddressHeader("From", es.config.FromEmail, es.config.FromName)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", toEmail, err)
	}
	return nil
}
