package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_DeliversToSubscribersOfType(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var got []string
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.ResourceID)
		return errors.New("boom")
	})
	d.Subscribe(EventTicketCreated, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.ResourceID)
		return nil
	})
	d.Subscribe(EventCommentAdded, func(context.Context, Event) error {
		got = append(got, "comment")
		return nil
	})

	err := d.Publish(context.Background(), New(EventTicketCreated, "t-1", Actor{UserID: "u-1"}, time.Now(), nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:t-1", "second:t-1"}, got)
}

func TestNew_AssignsUniqueIDs(t *testing.T) {
	a := New(EventTicketDeleted, "t", Actor{}, time.Now(), nil)
	b := New(EventTicketDeleted, "t", Actor{}, time.Now(), nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
