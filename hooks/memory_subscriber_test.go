package hooks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/hooks"
	"github.com/devagent/orchestrator/memory"
)

type fakeMemoryStore struct {
	appended []memory.Event
}

func (f *fakeMemoryStore) LoadRun(context.Context, string, string) (memory.Snapshot, error) {
	return memory.Snapshot{}, nil
}

func (f *fakeMemoryStore) AppendEvents(_ context.Context, _, _ string, events ...memory.Event) error {
	f.appended = append(f.appended, events...)
	return nil
}

func TestNewMemorySubscriberRejectsNilStore(t *testing.T) {
	_, err := hooks.NewMemorySubscriber(nil, nil)
	require.Error(t, err)
}

func TestMemorySubscriberAppendsToolCallEvent(t *testing.T) {
	store := &fakeMemoryStore{}
	sub, err := hooks.NewMemorySubscriber(store, nil)
	require.NoError(t, err)

	ev := hooks.NewToolCallScheduledEvent("run-1", "coder", "call-1", "bash", map[string]any{"cmd": "ls"})
	require.NoError(t, sub.HandleEvent(context.Background(), ev))
	require.Len(t, store.appended, 1)
	assert.Equal(t, memory.EventToolCall, store.appended[0].Type)
}

func TestMemorySubscriberIgnoresUnmappedEvents(t *testing.T) {
	store := &fakeMemoryStore{}
	sub, err := hooks.NewMemorySubscriber(store, nil)
	require.NoError(t, err)

	ev := hooks.NewRunStartedEvent("run-1", "coder", "implement", "task-1")
	require.NoError(t, sub.HandleEvent(context.Background(), ev))
	assert.Empty(t, store.appended)
}

func TestMemorySubscriberPublishesMemoryAppendedOnBus(t *testing.T) {
	store := &fakeMemoryStore{}
	bus := hooks.NewBus()
	var gotAppended bool
	_, err := bus.Register(hooks.SubscriberFunc(func(_ context.Context, event hooks.Event) error {
		if event.Type() == hooks.MemoryAppended {
			gotAppended = true
		}
		return nil
	}))
	require.NoError(t, err)

	sub, err := hooks.NewMemorySubscriber(store, bus)
	require.NoError(t, err)
	_, err = bus.Register(sub)
	require.NoError(t, err)

	ev := hooks.NewAssistantMessageEvent("run-1", "coder", "done")
	require.NoError(t, bus.Publish(context.Background(), ev))
	assert.True(t, gotAppended)
}
