// AngelaMos | 2026
// mail.go

package mail

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"

	"github.com/carterperez-dev/paywall-blog/internal/config"
)

var ErrNoRecipient = errors.New("mail: message has no recipient")

type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	return nil
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of delivering them. It is
// the default driver outside production.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "mail not delivered (log driver)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}

// Link joins base and path and attaches token as the token query
// parameter.
func Link(base, path, token string) string {
	q := url.Values{"token": []string{token}}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/") + "?" + q.Encode()
}

func ConfirmationMessage(to, username, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirm your email address",
		Text: fmt.Sprintf(
			"Hi %s,\n\nplease confirm your email address by opening the link below.\n\n%s\n",
			username, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>please confirm your email address.</p><p><a href="%s">Confirm email</a></p>`,
			html.EscapeString(username), html.EscapeString(link),
		),
	}
}

func DeletionMessage(to, username, link string) Message {
	return Message{
		To:      to,
		Subject: "Confirm account deletion",
		Text: fmt.Sprintf(
			"Hi %s,\n\nopen the link below to permanently delete your account. "+
				"If you did not ask for this, ignore this mail.\n\n%s\n",
			username, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hi %s,</p><p>open the link below to permanently delete your account.</p><p><a href="%s">Delete account</a></p>`,
			html.EscapeString(username), html.EscapeString(link),
		),
	}
}

const (
	DriverLog = "log"
	DriverSES = "ses"
)

// New picks the mailer for cfg.Driver.
func New(ctx context.Context, cfg config.MailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Driver {
	case DriverSES:
		return NewSESMailer(ctx, cfg.Region, cfg.From)
	case DriverLog, "":
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("mail: unknown driver %q", cfg.Driver)
	}
}
