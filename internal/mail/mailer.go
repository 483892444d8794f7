package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Dispatcher sends outbound account mail. Implementations must be safe
// for concurrent use; dispatch happens after the triggering response.
type Dispatcher interface {
	SendVerification(ctx context.Context, email, token string) error
}

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	// VerifyBaseURL is prepended to the token link in the mail body.
	VerifyBaseURL string
}

// ConfigFromEnv reads SMTP config from environment variables.
func ConfigFromEnv() Config {
	base := os.Getenv("MAIL_VERIFY_BASE_URL")
	if base == "" {
		base = "http://localhost:8431/api/auth/verify"
	}
	return Config{
		Host:          os.Getenv("SMTP_HOST"),
		Port:          os.Getenv("SMTP_PORT"),
		Username:      os.Getenv("SMTP_USERNAME"),
		Password:      os.Getenv("SMTP_PASSWORD"),
		From:          os.Getenv("SMTP_FROM"),
		VerifyBaseURL: base,
	}
}

// Configured reports whether enough SMTP settings exist to send.
func (c Config) Configured() bool {
	return c.Host != "" && c.From != ""
}

// SMTPDispatcher sends mail through a plain SMTP relay.
type SMTPDispatcher struct {
	cfg Config
}

func NewSMTPDispatcher(cfg Config) *SMTPDispatcher {
	return &SMTPDispatcher{cfg: cfg}
}

func (d *SMTPDispatcher) SendVerification(_ context.Context, email, token string) error {
	link := d.cfg.VerifyBaseURL + "?token=" + token

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", d.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	b.WriteString("Subject: Activate your account\r\n")
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString("Your account has been created. Open the link below within 24 hours to activate it:\r\n\r\n")
	b.WriteString(link + "\r\n")

	addr := d.cfg.Host + ":" + d.cfg.Port
	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}
	return smtp.SendMail(addr, auth, d.cfg.From, []string{email}, []byte(b.String()))
}

// LogDispatcher logs instead of sending; used when SMTP is not
// configured so dev environments can copy the token from the log.
type LogDispatcher struct {
	Logger *zap.SugaredLogger
}

func (d LogDispatcher) SendVerification(_ context.Context, email, token string) error {
	d.Logger.Infow("verification mail (smtp not configured)", "email", email, "token", token)
	return nil
}

// FromEnv picks the SMTP dispatcher when configured, the log fallback
// otherwise.
func FromEnv(logger *zap.SugaredLogger) Dispatcher {
	cfg := ConfigFromEnv()
	if cfg.Configured() {
		return NewSMTPDispatcher(cfg)
	}
	return LogDispatcher{Logger: logger}
}

// Async runs a dispatch in the background. Failures are logged and never
// propagate to the request that triggered the mail.
func Async(logger *zap.SugaredLogger, d Dispatcher, email, token string) {
	go func() {
		if err := d.SendVerification(context.Background(), email, token); err != nil {
			logger.Warnw("verification mail failed", "email", email, "err", err)
		}
	}()
}
