package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Notifier dispatches account notifications through an external relay.
// Callers treat it as fire-and-forget; errors are logged, never retried.
type Notifier interface {
	SendWelcome(ctx context.Context, email, username string) error
}

// Config holds SMTP relay credentials.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends mail through an SMTP relay via go-mail.
type SMTPNotifier struct {
	client *gomail.Client
	from   string
}

func NewSMTPNotifier(cfg Config) (*SMTPNotifier, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("mail host and from address are required")
	}

	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
	}
	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}

	return &SMTPNotifier{client: client, from: cfg.From}, nil
}

func (n *SMTPNotifier) SendWelcome(ctx context.Context, email, username string) error {
	msg := gomail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject("Welcome to Crop Doctor")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Hi %s,\n\nThank you for signing up to our crop disease detection app!\n\nStay tuned for more updates.\n\n- Team Crop Doctor",
		username,
	))

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send welcome mail: %w", err)
	}
	return nil
}

// NoopNotifier is used when no mail relay is configured.
type NoopNotifier struct{}

func (NoopNotifier) SendWelcome(ctx context.Context, email, username string) error {
	return nil
}

var (
	_ Notifier = (*SMTPNotifier)(nil)
	_ Notifier = NoopNotifier{}
)
