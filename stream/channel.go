package stream

import (
	"context"
	"sync"
)

// ChannelSink is a Sink backed by a buffered Go channel, used by hosts that
// want to pump stream.Event values into their own transport (SSE, WebSocket)
// without a message broker in between.
type ChannelSink struct {
	events chan Event
	once   sync.Once
}

// NewChannelSink constructs a ChannelSink with the given buffer size. A
// non-positive size yields an unbuffered channel.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

// Events returns the channel callers should range over to receive events.
// It is closed once Close is called.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// Send implements Sink by pushing event onto the channel, honoring ctx
// cancellation so a stalled consumer cannot block the producer forever.
func (s *ChannelSink) Send(ctx context.Context, event Event) error {
	select {
	case s.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Sink by closing the underlying channel. Safe to call
// multiple times.
func (s *ChannelSink) Close(context.Context) error {
	s.once.Do(func() { close(s.events) })
	return nil
}
