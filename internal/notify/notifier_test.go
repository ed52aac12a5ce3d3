package notify

import (
	"context"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTicket() TicketData {
	return TicketData{
		BookingID:       42,
		CustomerName:    "Jane Doe",
		CustomerPhone:   "+201000000000",
		CustomerEmail:   "jane@example.com",
		Origin:          "Cairo",
		Destination:     "Alexandria",
		DepartureAt:     time.Date(2026, 9, 1, 8, 30, 0, 0, time.UTC),
		ArrivalAt:       time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC),
		Seats:           []int{3, 4},
		SeatsBooked:     2,
		TotalPriceCents: 5000,
		PaymentType:     "ONLINE",
		PaymentRef:      "txn_123",
	}
}

func TestBuildTicketPDF(t *testing.T) {
	data, err := BuildTicketPDF(sampleTicket())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestSendTicket(t *testing.T) {
	var gotFrom string
	var gotTo []string
	var gotMsg []byte

	n := NewNotifier(SMTPConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "mailer",
		Password:  "secret",
		FromEmail: "tickets@example.com",
	})
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotFrom = from
		gotTo = to
		gotMsg = msg
		return nil
	}

	err := n.SendTicket(context.Background(), sampleTicket())
	require.NoError(t, err)
	assert.Equal(t, "tickets@example.com", gotFrom)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Your bus ticket for booking #42")
	assert.Contains(t, string(gotMsg), "Content-Type: application/pdf")
}

func TestSendTicketSkipsWhenUnconfigured(t *testing.T) {
	n := NewNotifier(SMTPConfig{})
	called := false
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	err := n.SendTicket(context.Background(), sampleTicket())
	require.NoError(t, err)
	assert.False(t, called)
}

func TestSendTicketSkipsWithoutEmail(t *testing.T) {
	n := NewNotifier(SMTPConfig{Host: "smtp.example.com", Port: 587, FromEmail: "tickets@example.com"})
	called := false
	n.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		called = true
		return nil
	}

	d := sampleTicket()
	d.CustomerEmail = ""
	err := n.SendTicket(context.Background(), d)
	require.NoError(t, err)
	assert.False(t, called)
}
