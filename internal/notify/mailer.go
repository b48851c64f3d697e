// Package notify sends e-mail notifications to users.
package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// Mailer tells a user their waitlist spot turned into a confirmed place.
type Mailer interface {
	SendPromotion(ctx context.Context, to, name, activityTitle string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg    SMTPConfig
	dialer *gomail.Dialer
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	return &SMTPMailer{cfg: cfg, dialer: d}
}

func (m *SMTPMailer) SendPromotion(ctx context.Context, to, name, activityTitle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := promotionMessage(m.cfg.From, to, name, activityTitle)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send promotion mail to %s: %w", to, err)
	}
	return nil
}

func promotionMessage(from, to, name, activityTitle string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", fmt.Sprintf("You're in: %s", activityTitle))
	m.SetBody("text/html", promotionHTML(name, activityTitle))
	return m
}

func promotionHTML(name, activityTitle string) string {
	return fmt.Sprintf(`<p>Hi %s,</p><p>A spot opened up and you have been moved from the waitlist to the participant list of <b>%s</b>.</p><p>See you there!</p>`,
		html.EscapeString(name), html.EscapeString(activityTitle))
}

// NopMailer discards every notification. Used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) SendPromotion(context.Context, string, string, string) error { return nil }
