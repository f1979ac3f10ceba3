package mail

import (
	"fmt"

	"github.com/CarOnePlus/CarOnePlus/internal/common/config"
	"gopkg.in/gomail.v2"
)

// Mailer 邮件发送接口。发送失败由调用方记日志，不影响主流程。
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer 基于 SMTP（Brevo 等中继）的实现。
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		sender: cfg.Sender,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m == nil || m.dialer == nil {
		return fmt.Errorf("mailer not initialized")
	}
	if to == "" {
		return fmt.Errorf("recipient is empty")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
