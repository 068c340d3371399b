package alerts

import (
	"context"
	"errors"
)

// MessageID identifies a message in the notification channel.
type MessageID int

var (
	// ErrPinUnsupported is returned by Pin when the chat cannot pin messages
	// (private chats, missing admin rights).
	ErrPinUnsupported = errors.New("pin not supported in this chat")

	// ErrChannelDeliveryFailed wraps any channel failure surfaced by Board.
	ErrChannelDeliveryFailed = errors.New("channel delivery failed")
)

// Channel is the outbound notification transport.
type Channel interface {
	Send(ctx context.Context, text string) (MessageID, error)
	Edit(ctx context.Context, id MessageID, text string) error
	Pin(ctx context.Context, id MessageID) error
	Unpin(ctx context.Context, id MessageID) error
}

// Recorder receives gate and channel events. *observability.Recorder
// satisfies it.
type Recorder interface {
	GateRejected(stage string)
	AlertCommitted()
	ChannelFailed(op string)
}

type noopRecorder struct{}

func (noopRecorder) GateRejected(string)  {}
func (noopRecorder) AlertCommitted()      {}
func (noopRecorder) ChannelFailed(string) {}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return noopRecorder{}
	}
	return r
}
