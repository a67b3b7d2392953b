package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/service"
)

type recordingMailer struct {
	mu    sync.Mutex
	sent  []string
	fails int
}

func (m *recordingMailer) Send(_ context.Context, recipient string, _ any, template string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails > 0 {
		m.fails--
		return assert.AnError
	}
	m.sent = append(m.sent, recipient+":"+template)
	return nil
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, event string, _ any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func TestNotificationPipelineDeliversAfterRetry(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	pool := NewPool(Options{Workers: 2, QueueSize: 8, MaxAttempts: 3, Backoff: time.Millisecond}, zap.NewNop(), nil)
	mailer := &recordingMailer{fails: 1}
	broadcaster := &recordingBroadcaster{}

	ns := service.NewNotificationService(service.NotificationDependencies{
		Dispatcher:  dispatcher,
		Queue:       pool,
		Mailer:      mailer,
		Broadcaster: broadcaster,
		Logger:      zap.NewNop(),
	})
	StartNotificationWorker(pool, ns)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventKYCUpdated,
		Payload: events.KYCUpdatedPayload{KYCID: "k1", UserID: "u1", Status: domain.KYCStatusApproved, Email: "ada@campus.test", FirstName: "Ada"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventOrderUpdate,
		Payload: events.OrderUpdatePayload{OrderID: "o1"},
	}))

	require.NoError(t, pool.Stop(ctx))

	assert.Equal(t, []string{"ada@campus.test:kyc_approved.tmpl"}, mailer.sent)
	assert.ElementsMatch(t, []string{"kycUpdated", "order_update"}, broadcaster.events)
}
