package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcrabbitmq "github.com/testcontainers/testcontainers-go/modules/rabbitmq"

	"talentpool-backend/internal/integrations"
	"talentpool-backend/internal/logging"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []integrations.Email
	err  error
}

func (f *fakeMailer) SendEmail(_ context.Context, e integrations.Email) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeWhatsApp struct {
	sent []integrations.WhatsAppMessage
}

func (f *fakeWhatsApp) SendWhatsApp(_ context.Context, m integrations.WhatsAppMessage) error {
	f.sent = append(f.sent, m)
	return nil
}

var (
	validEmail = integrations.Email{To: "jane@example.com", Subject: "Interview", HTML: "<p>hi</p>"}
	validWA    = integrations.WhatsAppMessage{To: "+66812345678", Template: "interview_invite"}
)

func TestNotificationValidate(t *testing.T) {
	tests := []struct {
		name    string
		n       Notification
		wantErr bool
	}{
		{"email", EmailNotification(validEmail), false},
		{"whatsapp", WhatsAppNotification(validWA), false},
		{"email without payload", Notification{Kind: KindEmail}, true},
		{"whatsapp without payload", Notification{Kind: KindWhatsApp}, true},
		{"bad email", EmailNotification(integrations.Email{To: "nope", Subject: "s", HTML: "h"}), true},
		{"unknown kind", Notification{Kind: "sms"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.n.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()
	mailer := &fakeMailer{}
	wa := &fakeWhatsApp{}
	d := &Dispatcher{Mailer: mailer, WhatsApp: wa, Log: logging.Discard()}

	require.NoError(t, d.Dispatch(ctx, EmailNotification(validEmail)))
	require.NoError(t, d.Dispatch(ctx, WhatsAppNotification(validWA)))
	assert.Equal(t, 1, mailer.count())
	assert.Len(t, wa.sent, 1)

	assert.True(t, d.CanSend(KindEmail))
	assert.False(t, d.CanSend("sms"))
}

func TestDispatcher_Disabled(t *testing.T) {
	var disabled *integrations.Mailer
	d := &Dispatcher{Mailer: disabled}

	assert.False(t, d.CanSend(KindEmail))
	assert.False(t, d.CanSend(KindWhatsApp))
	err := d.Dispatch(context.Background(), EmailNotification(validEmail))
	assert.ErrorIs(t, err, integrations.ErrDisabled)

	d.Mailer = integrations.NewMailer("", "", "from@example.com")
	assert.False(t, d.CanSend(KindEmail))
}

func TestDirect(t *testing.T) {
	mailer := &fakeMailer{}
	p := NewDirect(&Dispatcher{Mailer: mailer}, 4, logging.Discard())

	for i := 0; i < 3; i++ {
		require.NoError(t, p.Enqueue(context.Background(), EmailNotification(validEmail)))
	}
	assert.Error(t, p.Enqueue(context.Background(), Notification{Kind: "sms"}))

	p.Close()
	assert.Equal(t, 3, mailer.count())
}

func TestDirect_FailedDeliveryIsLogged(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("upstream down")}
	p := NewDirect(&Dispatcher{Mailer: mailer}, 1, logging.Discard())
	require.NoError(t, p.Enqueue(context.Background(), EmailNotification(validEmail)))
	p.Close()
	assert.Equal(t, 0, mailer.count())
}

type recordingPublisher struct {
	got []Notification
}

func (r *recordingPublisher) Enqueue(_ context.Context, n Notification) error {
	r.got = append(r.got, n)
	return nil
}

func TestNotifier(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub, &Dispatcher{Mailer: &fakeMailer{}})

	require.NoError(t, n.Send(context.Background(), EmailNotification(validEmail)))
	assert.ErrorIs(t, n.Send(context.Background(), WhatsAppNotification(validWA)), integrations.ErrDisabled)
	assert.Error(t, n.Send(context.Background(), EmailNotification(integrations.Email{To: "bad"})))
	assert.Len(t, pub.got, 1)

	var missing *Notifier
	assert.False(t, missing.CanSend(KindEmail))
}

func TestRabbitMQ(t *testing.T) {
	if testing.Short() {
		t.Skip("rabbitmq container test")
	}
	ctx := context.Background()
	container, err := tcrabbitmq.Run(ctx, "rabbitmq:3.13-alpine")
	if container != nil {
		defer func() { _ = container.Terminate(ctx) }()
	}
	require.NoError(t, err)

	url, err := container.AmqpURL(ctx)
	require.NoError(t, err)

	mq, err := NewRabbitMQ(url, "test_notifications", logging.Discard())
	require.NoError(t, err)
	defer func() { _ = mq.Close() }()

	require.NoError(t, mq.Enqueue(ctx, EmailNotification(validEmail)))
	require.NoError(t, mq.Enqueue(ctx, WhatsAppNotification(validWA)))
	assert.Error(t, mq.Enqueue(ctx, Notification{Kind: "sms"}))

	consumeCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var (
		mu       sync.Mutex
		received []Notification
	)
	go func() {
		_ = mq.Consume(consumeCtx, func(_ context.Context, n Notification) error {
			mu.Lock()
			defer mu.Unlock()
			received = append(received, n)
			if len(received) == 2 {
				cancel()
			}
			return nil
		})
	}()

	<-consumeCtx.Done()
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, KindEmail, received[0].Kind)
	assert.Equal(t, validEmail.To, received[0].Email.To)
	assert.Equal(t, KindWhatsApp, received[1].Kind)
}
