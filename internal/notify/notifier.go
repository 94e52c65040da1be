package notify

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

// LogNotifier stands in for the mailer when SMTP is not configured. It
// renders the notification so template errors still surface, then logs it.
type LogNotifier struct {
	log *slog.Logger
	to  string
}

func NewLogNotifier(log *slog.Logger, operator string) *LogNotifier {
	return &LogNotifier{log: log, to: operator}
}

func (n *LogNotifier) NotifyOrder(_ context.Context, d orders.Details) error {
	body, err := Render(d)
	if err != nil {
		return err
	}
	n.log.Info("order notification (smtp disabled)", "to", n.to, "subject", subject(d), "bytes", len(body))
	return nil
}

// New picks the SMTP mailer when a host is configured.
func New(cfg config.Config, log *slog.Logger) orders.Notifier {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, order notifications will only be logged")
		return NewLogNotifier(log, cfg.OperatorEmail)
	}
	return NewMailer(cfg.SMTP, cfg.OperatorEmail)
}
