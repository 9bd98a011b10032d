package changesbus

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"

	"tagtable/internal/engine"
)

// Subscriber wraps a ZeroMQ SUB socket dialed at a Publisher's address,
// automatically reconnecting if the publisher restarts.
type Subscriber struct {
	socket zmq4.Socket
}

// NewSubscriber dials addr and subscribes to every topic this bus ever
// publishes.
func NewSubscriber(ctx context.Context, addr string) (*Subscriber, error) {
	socket := zmq4.NewSub(ctx, zmq4.WithAutomaticReconnect(true))
	if err := socket.Dial(addr); err != nil {
		return nil, fmt.Errorf("changesbus: dial %s: %w", addr, err)
	}
	if err := socket.SetOption(zmq4.OptionSubscribe, topic); err != nil {
		return nil, fmt.Errorf("changesbus: subscribe: %w", err)
	}
	return &Subscriber{socket: socket}, nil
}

// Next blocks until the next ChangeSet arrives or the socket's receive
// fails. Its ctx argument is not consulted.
func (s *Subscriber) Next(ctx context.Context) (*engine.ChangeSet, error) {
	msg, err := s.socket.Recv()
	if err != nil {
		return nil, fmt.Errorf("changesbus: recv: %w", err)
	}
	if len(msg.Frames) != 2 {
		return nil, fmt.Errorf("changesbus: expected 2 frames, got %d", len(msg.Frames))
	}
	cs, err := engine.DecodeChangeSet(msg.Frames[1])
	if err != nil {
		return nil, fmt.Errorf("changesbus: decode: %w", err)
	}
	return cs, nil
}

// Close releases the underlying socket.
func (s *Subscriber) Close() error {
	return s.socket.Close()
}
