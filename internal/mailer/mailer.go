package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidMessage = errors.New("invalid email message")

type Message struct {
	To      []string
	Subject string
	HTML    string
}

func (m Message) Validate() error {
	if len(m.To) == 0 || strings.TrimSpace(m.Subject) == "" || strings.TrimSpace(m.HTML) == "" {
		return fmt.Errorf("%w: to, subject and html are required", ErrInvalidMessage)
	}
	for _, addr := range m.To {
		if strings.ContainsAny(addr, "\r\n") || !strings.Contains(addr, "@") {
			return fmt.Errorf("%w: invalid recipient %q", ErrInvalidMessage, addr)
		}
	}
	if strings.ContainsAny(m.Subject, "\r\n") {
		return fmt.Errorf("%w: subject must be a single line", ErrInvalidMessage)
	}
	return nil
}

type Result struct {
	MessageID string `json:"messageId"`
	Simulated bool   `json:"simulated"`
}

type Mailer interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// LogMailer only logs messages. It is used when no SMTP provider is configured.
type LogMailer struct {
	logger *zap.SugaredLogger
}

func NewLogMailer(logger *zap.SugaredLogger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) (Result, error) {
	if err := msg.Validate(); err != nil {
		return Result{}, err
	}
	id := uuid.NewString()
	m.logger.Infow("simulated email send",
		"message_id", id,
		"to", msg.To,
		"subject", msg.Subject,
		"html_bytes", len(msg.HTML),
	)
	return Result{MessageID: id, Simulated: true}, nil
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
	logger *zap.SugaredLogger
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg SMTPConfig, logger *zap.SugaredLogger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, logger: logger, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) (Result, error) {
	if err := msg.Validate(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	id := uuid.NewString()
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, msg.To, buildMIME(id, m.cfg.From, msg)); err != nil {
		m.logger.Errorw("email send failed", "message_id", id, "to", msg.To, "error", err)
		return Result{}, fmt.Errorf("send email: %w", err)
	}

	m.logger.Infow("email sent", "message_id", id, "to", msg.To, "subject", msg.Subject)
	return Result{MessageID: id}, nil
}

func buildMIME(id, from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(msg.To, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("Message-ID: <" + id + "@pharmacrm>\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)
	return []byte(b.String())
}
