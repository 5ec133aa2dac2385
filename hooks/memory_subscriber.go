package hooks

import (
	"context"
	"errors"
	"time"

	"github.com/devagent/orchestrator/memory"
)

// MemorySubscriber is a Subscriber that persists hook events into a
// memory.Store as the run's append-only transcript. It forwards tool
// calls, tool results, assistant messages, and planner notes; all other
// hook event types are ignored.
type MemorySubscriber struct {
	store memory.Store
	bus   Bus
}

// NewMemorySubscriber constructs a subscriber that appends selected hook
// events to store. If bus is non-nil, a successful append also publishes a
// MemoryAppendedEvent back onto it.
func NewMemorySubscriber(store memory.Store, bus Bus) (Subscriber, error) {
	if store == nil {
		return nil, errors.New("memory store is required")
	}
	return &MemorySubscriber{store: store, bus: bus}, nil
}

// HandleEvent implements Subscriber.
func (s *MemorySubscriber) HandleEvent(ctx context.Context, event Event) error {
	memEvent, ok := toMemoryEvent(event)
	if !ok {
		return nil
	}
	if err := s.store.AppendEvents(ctx, event.AgentID(), event.RunID(), memEvent); err != nil {
		return err
	}
	if s.bus != nil {
		return s.bus.Publish(ctx, NewMemoryAppendedEvent(event.RunID(), event.AgentID(), 1))
	}
	return nil
}

func toMemoryEvent(event Event) (memory.Event, bool) {
	switch evt := event.(type) {
	case *ToolCallScheduledEvent:
		return memory.Event{
			Type:      memory.EventToolCall,
			Timestamp: time.UnixMilli(evt.Timestamp()),
			Data:      map[string]any{"tool_name": evt.ToolName, "payload": evt.Payload},
		}, true
	case *ToolResultReceivedEvent:
		return memory.Event{
			Type:      memory.EventToolResult,
			Timestamp: time.UnixMilli(evt.Timestamp()),
			Data:      map[string]any{"tool_name": evt.ToolName, "result": evt.Result, "duration": evt.Duration, "error": evt.Error},
		}, true
	case *AssistantMessageEvent:
		return memory.Event{
			Type:      memory.EventAssistantMessage,
			Timestamp: time.UnixMilli(evt.Timestamp()),
			Data:      map[string]any{"message": evt.Message},
		}, true
	case *PlannerNoteEvent:
		return memory.Event{
			Type:      memory.EventPlannerNote,
			Timestamp: time.UnixMilli(evt.Timestamp()),
			Data:      map[string]any{"note": evt.Note},
			Labels:    evt.Labels,
		}, true
	default:
		return memory.Event{}, false
	}
}
