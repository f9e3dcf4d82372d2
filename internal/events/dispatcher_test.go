package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryDispatcher_PublishesToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var created, comments int
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error { created++; return nil })
	d.Subscribe(EventCommentAdded, func(context.Context, Event) error { comments++; return nil })

	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventRoleChanged}))

	assert.Equal(t, 2, created)
	assert.Equal(t, 0, comments)
}

func TestInMemoryDispatcher_RunsAllHandlersOnFailure(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	calls := 0
	d.Subscribe(EventRoleChanged, func(context.Context, Event) error { calls++; return boom })
	d.Subscribe(EventRoleChanged, func(context.Context, Event) error { calls++; return nil })

	err := d.Publish(context.Background(), Event{Type: EventRoleChanged})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
