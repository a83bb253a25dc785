// Package queue carry outgoing notifications from the API to whoever delivers them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"talentpool-backend/internal/integrations"
)

// Notification kinds
const (
	KindEmail    = "email"
	KindWhatsApp = "whatsapp"
)

// ErrUnknownKind is returned for notification that no sender can deliver
var ErrUnknownKind = errors.New("unknown notification kind")

// Notification is one message waiting to be delivered
type Notification struct {
	Kind     string                        `json:"kind"`
	Email    *integrations.Email           `json:"email,omitempty"`
	WhatsApp *integrations.WhatsAppMessage `json:"whatsapp,omitempty"`
}

// EmailNotification wrap email into notification
func EmailNotification(email integrations.Email) Notification {
	return Notification{Kind: KindEmail, Email: &email}
}

// WhatsAppNotification wrap WhatsApp template message into notification
func WhatsAppNotification(msg integrations.WhatsAppMessage) Notification {
	return Notification{Kind: KindWhatsApp, WhatsApp: &msg}
}

// Validate check that notification carry a valid payload of its kind
func (n Notification) Validate() error {
	switch n.Kind {
	case KindEmail:
		if n.Email == nil {
			return errors.New("email payload is required")
		}
		return n.Email.Validate()
	case KindWhatsApp:
		if n.WhatsApp == nil {
			return errors.New("whatsapp payload is required")
		}
		return n.WhatsApp.Validate()
	default:
		return ErrUnknownKind
	}
}

// Publisher accept notification for later delivery
type Publisher interface {
	Enqueue(ctx context.Context, n Notification) error
}

// Dispatcher deliver notification with the configured senders
type Dispatcher struct {
	Mailer   integrations.EmailSender
	WhatsApp integrations.WhatsAppSender
	Log      *logrus.Entry
}

type enabler interface {
	Enabled() bool
}

func senderEnabled(s interface{}) bool {
	if s == nil {
		return false
	}
	if e, ok := s.(enabler); ok {
		return e.Enabled()
	}
	return true
}

// CanSend tell whether notification of kind can be delivered at all
func (d *Dispatcher) CanSend(kind string) bool {
	switch kind {
	case KindEmail:
		return d.Mailer != nil && senderEnabled(d.Mailer)
	case KindWhatsApp:
		return d.WhatsApp != nil && senderEnabled(d.WhatsApp)
	}
	return false
}

// Dispatch deliver notification now
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	if !d.CanSend(n.Kind) {
		return integrations.ErrDisabled
	}
	switch n.Kind {
	case KindEmail:
		return d.Mailer.SendEmail(ctx, *n.Email)
	case KindWhatsApp:
		return d.WhatsApp.SendWhatsApp(ctx, *n.WhatsApp)
	}
	return ErrUnknownKind
}

// Direct deliver notification in background goroutine of the API process,
// used when no message broker is configured
type Direct struct {
	dispatcher *Dispatcher
	timeout    time.Duration
	log        *logrus.Entry
	done       chan struct{}
	pending    chan Notification
}

// NewDirect create in-process publisher with buffer of size slots and start its worker
func NewDirect(d *Dispatcher, size int, log *logrus.Entry) *Direct {
	if size <= 0 {
		size = 64
	}
	if log == nil {
		log = logrus.WithField("component", "notifier")
	}
	p := &Direct{
		dispatcher: d,
		timeout:    30 * time.Second,
		log:        log,
		done:       make(chan struct{}),
		pending:    make(chan Notification, size),
	}
	go p.run()
	return p
}

func (p *Direct) run() {
	defer close(p.done)
	for n := range p.pending {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.dispatcher.Dispatch(ctx, n); err != nil {
			p.log.WithError(err).WithField("kind", n.Kind).Error("failed to deliver notification")
		}
		cancel()
	}
}

// Enqueue implements Publisher
func (p *Direct) Enqueue(ctx context.Context, n Notification) error {
	if err := n.Validate(); err != nil {
		return err
	}
	select {
	case p.pending <- n:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue notification: %w", ctx.Err())
	}
}

// Close stop accepting notification and wait until pending ones are delivered
func (p *Direct) Close() {
	close(p.pending)
	<-p.done
}

// Notifier is what handlers use to send notification: it refuses kinds that no sender
// is configured for and hand the rest to the publisher
type Notifier struct {
	Publisher  Publisher
	Dispatcher *Dispatcher
}

// NewNotifier create notifier on top of publisher, d decide which kinds are accepted
func NewNotifier(p Publisher, d *Dispatcher) *Notifier {
	return &Notifier{Publisher: p, Dispatcher: d}
}

// CanSend tell whether kind is accepted
func (n *Notifier) CanSend(kind string) bool {
	return n != nil && n.Publisher != nil && n.Dispatcher != nil && n.Dispatcher.CanSend(kind)
}

// Send validate and enqueue notification, ErrDisabled when its kind can't be delivered
func (n *Notifier) Send(ctx context.Context, msg Notification) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if !n.CanSend(msg.Kind) {
		return integrations.ErrDisabled
	}
	return n.Publisher.Enqueue(ctx, msg)
}
