package stream_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devagent/orchestrator/stream"
)

func TestChannelSinkDeliversSentEvents(t *testing.T) {
	sink := stream.NewChannelSink(1)
	err := sink.Send(context.Background(), stream.Event{Type: stream.EventAssistantReply, RunID: "run-1"})
	require.NoError(t, err)
	select {
	case ev := <-sink.Events():
		assert.Equal(t, stream.EventAssistantReply, ev.Type)
	default:
		t.Fatal("expected buffered event")
	}
}

func TestChannelSinkSendRespectsContextCancellation(t *testing.T) {
	sink := stream.NewChannelSink(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := sink.Send(ctx, stream.Event{Type: stream.EventToolStart})
	require.ErrorIs(t, err, context.Canceled)
}

func TestChannelSinkCloseIsIdempotent(t *testing.T) {
	sink := stream.NewChannelSink(0)
	require.NoError(t, sink.Close(context.Background()))
	require.NoError(t, sink.Close(context.Background()))
	_, ok := <-sink.Events()
	assert.False(t, ok)
}
