package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campus-market/backend/internal/domain"
	"github.com/campus-market/backend/internal/events"
	"github.com/campus-market/backend/internal/mailer"
)

// Notification channels, used as job and metric labels.
const (
	ChannelEmail     = "email"
	ChannelBroadcast = "broadcast"
)

// JobQueue runs notification jobs off the request path.
type JobQueue interface {
	Submit(channel string, fn func(ctx context.Context) error) bool
}

// EmailSender delivers one templated email.
type EmailSender interface {
	Send(ctx context.Context, recipient string, data any, template string) error
}

// Broadcaster pushes an event frame to realtime clients.
type Broadcaster interface {
	Broadcast(ctx context.Context, event string, data any) error
}

// NotificationService turns domain events into email and realtime jobs.
// Handlers only enqueue; they never read or write state, so replaying an
// event is harmless.
type NotificationService struct {
	dispatcher  events.Dispatcher
	queue       JobQueue
	mailer      EmailSender
	broadcaster Broadcaster
	logger      *zap.Logger
}

// NotificationDependencies bundles the delivery channels.
type NotificationDependencies struct {
	Dispatcher  events.Dispatcher
	Queue       JobQueue
	Mailer      EmailSender
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher:  deps.Dispatcher,
		queue:       deps.Queue,
		mailer:      deps.Mailer,
		broadcaster: deps.Broadcaster,
		logger:      logger.Named("notification"),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventActivationCodeIssued, n.handleCodeIssued(mailer.TemplateActivationCode))
	n.dispatcher.Subscribe(events.EventLoginCodeIssued, n.handleCodeIssued(mailer.TemplateLoginCode))
	n.dispatcher.Subscribe(events.EventKYCUpdated, n.handleKYCUpdated)
	n.dispatcher.Subscribe(events.EventOrderUpdate, n.handleBroadcast)
	n.dispatcher.Subscribe(events.EventProductUpdated, n.handleBroadcast)
}

func (n *NotificationService) handleCodeIssued(template string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.CodeIssuedPayload)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
		}
		n.enqueueEmail(event, payload.Email, payload, template)
		return nil
	}
}

func (n *NotificationService) handleKYCUpdated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.KYCUpdatedPayload)
	if !ok {
		return fmt.Errorf("%s: unexpected payload %T", event.Type, event.Payload)
	}
	n.enqueueBroadcast(event)

	template := mailer.TemplateKYCDeclined
	if payload.Status == domain.KYCStatusApproved {
		template = mailer.TemplateKYCApproved
	}
	n.enqueueEmail(event, payload.Email, payload, template)
	return nil
}

func (n *NotificationService) handleBroadcast(ctx context.Context, event events.Event) error {
	n.enqueueBroadcast(event)
	return nil
}

func (n *NotificationService) enqueueEmail(event events.Event, recipient string, data any, template string) {
	if n.mailer == nil || n.queue == nil || recipient == "" {
		return
	}
	accepted := n.queue.Submit(ChannelEmail, func(ctx context.Context) error {
		return n.mailer.Send(ctx, recipient, data, template)
	})
	if !accepted {
		n.logger.Error("email not queued",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("template", template))
	}
}

func (n *NotificationService) enqueueBroadcast(event events.Event) {
	if n.broadcaster == nil || n.queue == nil || !event.Type.Broadcast() {
		return
	}
	accepted := n.queue.Submit(ChannelBroadcast, func(ctx context.Context) error {
		return n.broadcaster.Broadcast(ctx, string(event.Type), event.Payload)
	})
	if !accepted {
		n.logger.Error("broadcast not queued",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
}
