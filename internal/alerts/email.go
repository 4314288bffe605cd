package alerts

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"bn-strike-bot/internal/config"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const implicitTLSPort = 465

// Email delivers notifications over SMTP. Port 465 uses implicit TLS; other
// ports upgrade with STARTTLS when the server offers it.
type Email struct {
	cfg     config.EmailConfig
	timeout time.Duration
	tls     *tls.Config
	log     *zap.Logger
	now     func() time.Time
}

func NewEmail(cfg config.EmailConfig, log *zap.Logger) *Email {
	return &Email{
		cfg:     cfg,
		timeout: 20 * time.Second,
		tls:     &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		log:     log,
		now:     time.Now,
	}
}

func (e *Email) Name() string {
	return "email"
}

func (e *Email) ccList() []string {
	var out []string
	for _, cc := range strings.Split(e.cfg.ReceiverCC, ",") {
		if cc = strings.TrimSpace(cc); cc != "" {
			out = append(out, cc)
		}
	}
	return out
}

func (e *Email) compose(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(e.cfg.SenderName, e.cfg.User); err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	if err := m.AddToFormat(e.cfg.ReceiverName, e.cfg.ReceiverAddress); err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}
	if cc := e.ccList(); len(cc) > 0 {
		if err := m.Cc(cc...); err != nil {
			return nil, fmt.Errorf("cc: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(e.now())
	m.SetBodyString(mail.TypeTextHTML, "<p>"+strings.ReplaceAll(msg.HTML, "\n", "<br>")+"</p>")
	return m, nil
}

func (e *Email) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(e.cfg.Port),
		mail.WithTimeout(e.timeout),
		mail.WithTLSConfig(e.tls),
	}
	if e.cfg.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if e.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(e.cfg.User),
			mail.WithPassword(e.cfg.Password),
		)
	}
	return mail.NewClient(e.cfg.Host, opts...)
}

func (e *Email) Send(ctx context.Context, msg Message) error {
	if !e.cfg.Enabled {
		return nil
	}
	if e.cfg.Host == "" || e.cfg.User == "" || e.cfg.ReceiverAddress == "" {
		return errors.New("email host, user and receiver_address are required")
	}
	m, err := e.compose(msg)
	if err != nil {
		return fmt.Errorf("compose email: %w", err)
	}
	client, err := e.client()
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
