package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/storefront-orders/internal/config"
	"github.com/ariefcatur/storefront-orders/internal/orders"
)

const implicitTLSPort = 465

// Mailer delivers order notifications to the operator over SMTP. Every send
// opens a fresh connection bounded by the caller's context deadline.
type Mailer struct {
	host string
	port int
	auth smtp.Auth
	from string
	to   string
	now  func() time.Time
}

func NewMailer(cfg config.SMTP, operator string) *Mailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &Mailer{
		host: cfg.Host,
		port: cfg.Port,
		auth: auth,
		from: cfg.From,
		to:   operator,
		now:  time.Now,
	}
}

func (m *Mailer) NotifyOrder(ctx context.Context, d orders.Details) error {
	body, err := Render(d)
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}
	msg := m.compose(subject(d), body, d.Email)
	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

func subject(d orders.Details) string {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return "New order"
	}
	return "New order from " + name
}

func (m *Mailer) compose(subj, html, replyTo string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", m.to)
	if addr, err := mail.ParseAddress(replyTo); err == nil {
		fmt.Fprintf(&b, "Reply-To: %s\r\n", addr.String())
	}
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subj))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(html, "\n", "\r\n"))
	return b.Bytes()
}

func (m *Mailer) send(ctx context.Context, msg []byte) error {
	addr := net.JoinHostPort(m.host, strconv.Itoa(m.port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	tlsCfg := &tls.Config{ServerName: m.host}
	if m.port == implicitTLSPort {
		conn = tls.Client(conn, tlsCfg)
	}

	c, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer c.Close()

	if m.port != implicitTLSPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(tlsCfg); err != nil {
				return err
			}
		}
	}
	if m.auth != nil {
		if ok, _ := c.Extension("AUTH"); ok {
			if err := c.Auth(m.auth); err != nil {
				return err
			}
		}
	}
	if err := c.Mail(m.from); err != nil {
		return err
	}
	if err := c.Rcpt(m.to); err != nil {
		return err
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}
