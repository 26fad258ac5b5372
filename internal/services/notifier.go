package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gopkg.in/gomail.v2"
)

// Notifier delivers operator alerts, such as a failed video post
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// LogNotifier writes alerts to the process log
type LogNotifier struct {
	Logger *log.Logger
}

// Notify implements Notifier
func (n LogNotifier) Notify(_ context.Context, subject, body string) error {
	logf := log.Printf
	if n.Logger != nil {
		logf = n.Logger.Printf
	}
	logf("NOTIFY %s: %s", subject, body)
	return nil
}

// MailDialer sends composed messages; *gomail.Dialer satisfies it
type MailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSettings configures EmailNotifier
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
}

// EmailNotifier sends alerts as plain-text mail
type EmailNotifier struct {
	dialer MailDialer
	from   string
	to     []string
}

// NewEmailNotifier creates a notifier that dials the SMTP server per message
func NewEmailNotifier(s SMTPSettings) *EmailNotifier {
	return NewEmailNotifierWithDialer(gomail.NewDialer(s.Host, s.Port, s.Username, s.Password), s.From, s.To)
}

// NewEmailNotifierWithDialer creates a notifier with a custom dialer.
// This is primarily used for testing.
func NewEmailNotifierWithDialer(dialer MailDialer, from string, to []string) *EmailNotifier {
	return &EmailNotifier{dialer: dialer, from: from, to: to}
}

// Notify implements Notifier
func (n *EmailNotifier) Notify(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(n.to) == 0 {
		return fmt.Errorf("no notification recipients configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", n.from)
	msg.SetHeader("To", n.to...)
	msg.SetHeader("Subject", "[shoppost] "+strings.TrimSpace(subject))
	msg.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}
