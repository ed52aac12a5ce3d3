package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"

	"busline/internal/logger"
)

type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	FromEmail string
}

// Notifier emails the ticket PDF for confirmed bookings. Delivery is best
// effort: callers log failures but never rewind a confirmed booking.
type Notifier struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewNotifier(cfg SMTPConfig) *Notifier {
	return &Notifier{
		cfg:  cfg,
		send: smtp.SendMail,
	}
}

// Enabled reports whether SMTP delivery is configured at all.
func (n *Notifier) Enabled() bool {
	return n.cfg.Host != ""
}

// SendTicket builds the ticket PDF and mails it to the customer.
func (n *Notifier) SendTicket(ctx context.Context, d TicketData) error {
	log := logger.WithContext(ctx)

	if !n.Enabled() {
		log.Debug("SMTP not configured, skipping ticket email", "booking_id", d.BookingID)
		return nil
	}
	if d.CustomerEmail == "" {
		log.Debug("No customer email on booking, skipping ticket email", "booking_id", d.BookingID)
		return nil
	}

	pdfData, err := BuildTicketPDF(d)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Your bus ticket for booking #%d", d.BookingID)
	body := fmt.Sprintf("Hello %s,\r\n\r\nYour booking #%d from %s to %s is confirmed. Your ticket is attached.\r\n",
		d.CustomerName, d.BookingID, d.Origin, d.Destination)
	filename := fmt.Sprintf("ticket_%d.pdf", d.BookingID)

	msg := buildMIMEMessage(n.cfg.FromEmail, d.CustomerEmail, subject, body, filename, pdfData)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := n.send(addr, auth, n.cfg.FromEmail, []string{d.CustomerEmail}, msg); err != nil {
		return fmt.Errorf("failed to send ticket email: %w", err)
	}

	log.Info("Ticket email sent", "booking_id", d.BookingID, "to", d.CustomerEmail)
	return nil
}

const mimeBoundary = "busline-ticket-boundary"

func buildMIMEMessage(from, to, subject, body, filename string, attachment []byte) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s\r\n", mimeBoundary)
	buf.WriteString("Content-Type: application/pdf\r\n")
	buf.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", filename)

	encoded := base64.StdEncoding.EncodeToString(attachment)
	for len(encoded) > 76 {
		buf.WriteString(encoded[:76])
		buf.WriteString("\r\n")
		encoded = encoded[76:]
	}
	buf.WriteString(encoded)
	buf.WriteString("\r\n")

	fmt.Fprintf(&buf, "--%s--\r\n", mimeBoundary)
	return buf.Bytes()
}
