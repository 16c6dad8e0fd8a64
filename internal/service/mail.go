package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

var ErrNoRecipients = errors.New("mail has no recipients")

type Mail struct {
	To      []string
	Subject string
	// HTML
	Body string
}

// Mailer delivers mail. A nil error means the SMTP server accepted it.
type Mailer interface {
	Send(ctx context.Context, m *Mail) error
}

type SMTPMailer struct {
	host     string
	port     int
	from     string
	password string
	timeout  time.Duration
}

func NewSMTPMailer(host string, port int, from, password string, timeout time.Duration) *SMTPMailer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &SMTPMailer{
		host:     host,
		port:     port,
		from:     from,
		password: password,
		timeout:  timeout,
	}
}

// Send fails once the configured timeout passes. The connection carries the
// same deadline, so nothing keeps talking to a stalled server afterwards.
func (s *SMTPMailer) Send(ctx context.Context, m *Mail) error {
	if len(m.To) == 0 {
		return ErrNoRecipients
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", m.To...)
	msg.SetHeader("Subject", m.Subject)
	msg.SetBody("text/html", m.Body)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := gomail.Send(gomail.SendFunc(func(from string, to []string, body io.WriterTo) error {
		return s.deliver(ctx, from, to, body)
	}), msg)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("mail delivery abandoned, %w", context.DeadlineExceeded)
	case ctx.Err() != nil:
		return fmt.Errorf("mail delivery abandoned, %w", ctx.Err())
	}
	return err
}

func (s *SMTPMailer) deliver(ctx context.Context, from string, to []string, body io.WriterTo) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(s.host, strconv.Itoa(s.port)))
	if err != nil {
		return err
	}

	// Implicit TLS
	if s.port == 465 {
		conn = tls.Client(conn, &tls.Config{ServerName: s.host})
	}

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok && s.port != 465 {
		if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
			return err
		}
	}

	// An empty password means an open relay
	if s.password != "" {
		if err := c.Auth(smtp.PlainAuth("", s.from, s.password, s.host)); err != nil {
			return err
		}
	}

	if err := c.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := c.Rcpt(addr); err != nil {
			return err
		}
	}

	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := body.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return c.Quit()
}
