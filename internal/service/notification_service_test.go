package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/deskflow/helpdesk/internal/config"
	"github.com/deskflow/helpdesk/internal/events"
)

func newObservedNotifications(t *testing.T, cfg config.NotificationConfig) (events.Dispatcher, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	NewNotificationService(dispatcher, zap.New(core), cfg).RegisterHandlers()
	return dispatcher, logs
}

func publish(t *testing.T, d events.Dispatcher, eventType events.EventType, payload any) {
	t.Helper()
	actor := events.Actor{UserID: "user-1"}
	require.NoError(t, d.Publish(context.Background(), events.New(eventType, "res-1", actor, time.Now(), payload)))
}

func TestNotificationService_TicketCreatedUsesBothChannels(t *testing.T) {
	d, logs := newObservedNotifications(t, config.NotificationConfig{
		EmailFrom:  "noreply@example.com",
		WebhookURL: "https://hooks.example.com/helpdesk",
	})

	publish(t, d, events.EventTicketCreated, events.TicketCreatedPayload{TicketNumber: "TKT-000001"})

	assert.Equal(t, 1, logs.FilterMessage(string(events.EventTicketCreated)).Len())
	assert.Equal(t, 1, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 1, logs.FilterMessage("sendWebhookNotificationStub").Len())
}

func TestNotificationService_InternalCommentSkipsEmail(t *testing.T) {
	d, logs := newObservedNotifications(t, config.NotificationConfig{EmailFrom: "noreply@example.com"})

	publish(t, d, events.EventCommentAdded, events.CommentAddedPayload{CommentID: "c-1", IsInternal: true})
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())

	publish(t, d, events.EventCommentAdded, events.CommentAddedPayload{CommentID: "c-2"})
	assert.Equal(t, 1, logs.FilterMessage("sendEmailNotificationStub").Len())
	assert.Equal(t, 2, logs.FilterMessage(string(events.EventCommentAdded)).Len())
}

func TestNotificationService_UnconfiguredChannelsStaySilent(t *testing.T) {
	d, logs := newObservedNotifications(t, config.NotificationConfig{})

	publish(t, d, events.EventTicketDeleted, nil)
	publish(t, d, events.EventApplicationDecided, events.ApplicationPayload{ApplicationID: "a-1"})

	assert.Equal(t, 2, logs.Len())
	assert.Zero(t, logs.FilterMessage("sendWebhookNotificationStub").Len())
	assert.Zero(t, logs.FilterMessage("sendEmailNotificationStub").Len())
}
