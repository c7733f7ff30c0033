package eventbus_test

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/atrox/maestro/pkg/channels/gochannel"
	"github.com/atrox/maestro/pkg/eventbus"
	"github.com/atrox/maestro/pkg/events"
	"github.com/atrox/maestro/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) eventbus.EventBus {
	t.Helper()

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)

	t.Cleanup(func() {
		err := bus.Close()
		if err != nil {
			t.Logf("Failed to close event bus: %v", err)
		}
	})

	return bus
}

func TestWatermillEventBus_PublishAndHandle(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *events.ExecutionStarted, 1)

	err := bus.Handle(events.ExecutionStartedEvent, func(_ context.Context, event any) error {
		started, ok := event.(*events.ExecutionStarted)
		if ok {
			received <- started
		}

		return nil
	})
	require.NoError(t, err)

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	published := events.ExecutionStarted{
		BaseEvent: events.BaseEvent{
			ID:          bus.GenerateID(),
			Type:        events.ExecutionStartedEvent,
			Timestamp:   time.Now().UTC(),
			PatternID:   "pattern-1",
			ExecutionID: "exec-1",
		},
		WorkflowType: models.WorkflowTypeSequential,
		TotalSteps:   2,
	}

	err = bus.Publish(ctx, "exec-1", published)
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "exec-1", got.ExecutionID)
		assert.Equal(t, models.WorkflowTypeSequential, got.WorkflowType)
		assert.Equal(t, 2, got.TotalSteps)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_UnhandledTypeIsAcked(t *testing.T) {
	bus := newTestBus(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *events.StepFinished, 1)

	err := bus.Handle(events.StepFinishedEvent, func(_ context.Context, event any) error {
		finished, ok := event.(*events.StepFinished)
		if ok {
			received <- finished
		}

		return nil
	})
	require.NoError(t, err)

	err = bus.Subscribe(ctx)
	require.NoError(t, err)

	// No handler registered for this one; it must not block the stream.
	err = bus.Publish(ctx, "exec-1", events.ExecutionCompleted{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.ExecutionCompletedEvent, ExecutionID: "exec-1"},
	})
	require.NoError(t, err)

	err = bus.Publish(ctx, "exec-1", events.StepFinished{
		BaseEvent: events.BaseEvent{ID: bus.GenerateID(), Type: events.StepFinishedEvent, ExecutionID: "exec-1"},
		AgentID:   "coder",
		TaskID:    "implement",
		Step:      1,
	})
	require.NoError(t, err)

	select {
	case got := <-received:
		assert.Equal(t, "implement", got.TaskID)
		assert.Equal(t, "coder", got.AgentID)
	case <-ctx.Done():
		t.Fatal("timed out waiting for event")
	}
}

func TestWatermillEventBus_GenerateID(t *testing.T) {
	bus := newTestBus(t)

	first := bus.GenerateID()
	second := bus.GenerateID()

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, second)
}
