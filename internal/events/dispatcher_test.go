package events_test

import (
	"context"
	"ctchen222/nogo-server/internal/events"
	"ctchen222/nogo-server/internal/events/mocks"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func mustEvent(t *testing.T, typ events.Type) events.Event {
	t.Helper()
	e, err := events.New(8001, typ, events.ChatPayload{Endpoint: "a:1", Text: "hi"})
	require.NoError(t, err)
	return e
}

func TestNewEvent(t *testing.T) {
	e := mustEvent(t, events.ChatPosted)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 8001, e.Port)
	assert.JSONEq(t, `{"endpoint":"a:1","text":"hi"}`, string(e.Payload))
}

func TestDispatcherForwardsInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)

	first := mustEvent(t, events.MatchStarted)
	second := mustEvent(t, events.MatchOver)

	delivered := make(chan events.Event, 2)
	gomock.InOrder(
		pub.EXPECT().Publish(gomock.Any(), first).DoAndReturn(func(_ context.Context, e events.Event) error {
			delivered <- e
			return nil
		}),
		pub.EXPECT().Publish(gomock.Any(), second).DoAndReturn(func(_ context.Context, e events.Event) error {
			delivered <- e
			return errors.New("sink down")
		}),
	)

	d := events.NewDispatcher(pub, 4)
	require.NoError(t, d.Publish(context.Background(), first))
	require.NoError(t, d.Publish(context.Background(), second))

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	for _, want := range []events.Event{first, second} {
		select {
		case got := <-delivered:
			assert.Equal(t, want.ID, got.ID)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}

	cancel()
	<-d.Done()
}

func TestDispatcherQueueFull(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Close().Return(nil)

	d := events.NewDispatcher(pub, 1)
	require.NoError(t, d.Publish(context.Background(), mustEvent(t, events.ChatPosted)))
	assert.ErrorIs(t, d.Publish(context.Background(), mustEvent(t, events.ChatPosted)), events.ErrQueueFull)
	assert.NoError(t, d.Close())
}

func TestDispatcherFlushesOnShutdown(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).Times(3)

	d := events.NewDispatcher(pub, 3)
	for range 3 {
		require.NoError(t, d.Publish(context.Background(), mustEvent(t, events.MovePlayed)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)
}

func TestMultiPublisher(t *testing.T) {
	ctrl := gomock.NewController(t)
	ok := mocks.NewMockPublisher(ctrl)
	failing := mocks.NewMockPublisher(ctrl)
	sinkErr := errors.New("sink down")

	e := mustEvent(t, events.ParticipantJoined)
	ok.EXPECT().Publish(gomock.Any(), e).Return(nil)
	failing.EXPECT().Publish(gomock.Any(), e).Return(sinkErr)
	ok.EXPECT().Close().Return(nil)
	failing.EXPECT().Close().Return(nil)

	multi := events.Multi{ok, failing}
	assert.ErrorIs(t, multi.Publish(context.Background(), e), sinkErr)
	assert.NoError(t, multi.Close())
}
