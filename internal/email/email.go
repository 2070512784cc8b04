package email

import (
	"context"
	"log"
	"strings"

	"github.com/Domenick1991/flightengine/internal/domain"
	"github.com/Domenick1991/flightengine/internal/kafka"
)

type Message struct {
	To      string
	Subject string
	Body    string
}

// Transport delivers a rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

type logTransport struct{}

func (logTransport) Deliver(_ context.Context, msg Message) error {
	log.Printf("send email to %s: %s", msg.To, msg.Subject)
	return nil
}

type Sender struct {
	transport Transport
}

func NewSender() *Sender {
	return &Sender{transport: logTransport{}}
}

func NewSenderWithTransport(t Transport) *Sender {
	return &Sender{transport: t}
}

// Send mails a booking confirmation to every passenger address on the event.
func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	if event.Type != kafka.EventBookingCreated {
		return nil
	}
	for _, to := range event.Emails {
		if err := s.transport.Deliver(ctx, Render(event, to)); err != nil {
			return err
		}
	}
	return nil
}

func Render(event kafka.BookingEvent, to string) Message {
	var b strings.Builder
	b.WriteString("Your booking " + event.Reference + " is confirmed.\n")
	b.WriteString("Flight " + event.FlightNumber + " " + event.From + " -> " + event.To)
	if !event.DepartsAt.IsZero() {
		b.WriteString(" departing " + domain.FormatDate(event.DepartsAt) + " " + event.DepartsAt.Format(domain.TimeLayout))
	}
	b.WriteString("\nCabin: " + event.Cabin + "\n")
	b.WriteString("Passengers: " + strings.Join(event.Passengers, ", ") + "\n")
	return Message{
		To:      to,
		Subject: "Booking " + event.Reference + " confirmed",
		Body:    b.String(),
	}
}
