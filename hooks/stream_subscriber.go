package hooks

import (
	"context"
	"errors"

	"github.com/devagent/orchestrator/stream"
)

// StreamSubscriber bridges hook events to a stream.Sink, forwarding only
// the events a client-facing UI cares about:
//
//   - ToolCallScheduled -> EventToolStart
//   - ToolResultReceived -> EventToolEnd
//   - AssistantMessage -> EventAssistantReply
//   - PlannerNote -> EventPlannerThought
//
// All other hook events are internal observability and are silently
// ignored.
type StreamSubscriber struct {
	sink stream.Sink
}

// NewStreamSubscriber constructs a subscriber that forwards selected hook
// events to sink. Returns an error if sink is nil.
func NewStreamSubscriber(sink stream.Sink) (Subscriber, error) {
	if sink == nil {
		return nil, errors.New("stream sink is required")
	}
	return &StreamSubscriber{sink: sink}, nil
}

// HandleEvent implements Subscriber.
func (s *StreamSubscriber) HandleEvent(ctx context.Context, event Event) error {
	switch evt := event.(type) {
	case *ToolCallScheduledEvent:
		return s.sink.Send(ctx, stream.Event{
			Type:    stream.EventToolStart,
			RunID:   evt.RunID(),
			AgentID: evt.AgentID(),
			Payload: stream.ToolStartPayload{ToolCallID: evt.ToolCallID, ToolName: evt.ToolName, Payload: evt.Payload},
		})
	case *ToolResultReceivedEvent:
		var errPayload error
		if evt.Error != nil {
			errPayload = evt.Error
		}
		return s.sink.Send(ctx, stream.Event{
			Type:    stream.EventToolEnd,
			RunID:   evt.RunID(),
			AgentID: evt.AgentID(),
			Payload: stream.ToolEndPayload{
				ToolName:  evt.ToolName,
				Result:    evt.Result,
				Duration:  evt.Duration,
				Telemetry: evt.Telemetry,
				Error:     errPayload,
			},
		})
	case *AssistantMessageEvent:
		return s.sink.Send(ctx, stream.Event{
			Type:    stream.EventAssistantReply,
			RunID:   evt.RunID(),
			AgentID: evt.AgentID(),
			Payload: stream.AssistantReplyPayload{Text: evt.Message},
		})
	case *PlannerNoteEvent:
		return s.sink.Send(ctx, stream.Event{
			Type:    stream.EventPlannerThought,
			RunID:   evt.RunID(),
			AgentID: evt.AgentID(),
			Payload: stream.PlannerThoughtPayload{Note: evt.Note},
		})
	default:
		return nil
	}
}
