package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishInvokesAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []string
	d.Subscribe(EventOrderUpdate, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.EntityID)
		return errors.New("first failed")
	})
	d.Subscribe(EventOrderUpdate, func(_ context.Context, e Event) error {
		panic("second exploded")
	})
	d.Subscribe(EventOrderUpdate, func(_ context.Context, e Event) error {
		got = append(got, "third:"+e.EntityID)
		return nil
	})
	d.Subscribe(EventKYCUpdated, func(_ context.Context, e Event) error {
		got = append(got, "kyc")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventOrderUpdate, EntityID: "o-1"})

	assert.Equal(t, []string{"first:o-1", "third:o-1"}, got)
	assert.ErrorContains(t, err, "first failed")
	assert.ErrorContains(t, err, "panicked")
}

func TestPublishWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventProductUpdated}))
}

func TestBroadcastEvents(t *testing.T) {
	assert.True(t, EventProductUpdated.Broadcast())
	assert.True(t, EventOrderUpdate.Broadcast())
	assert.True(t, EventKYCUpdated.Broadcast())
	assert.False(t, EventActivationCodeIssued.Broadcast())
	assert.False(t, EventLoginCodeIssued.Broadcast())
}
