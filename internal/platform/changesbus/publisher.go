// Package changesbus broadcasts committed ChangeSets over a ZeroMQ
// PUB/SUB socket, the transport pattern the teacher project uses to fan
// out transaction notifications to interested listeners.
package changesbus

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"

	"tagtable/internal/engine"
)

// topic is the single PUB/SUB topic this bus uses; tableserver runs one
// table per process, so there is nothing to multiplex on yet.
const topic = "tagtable.changes"

// Publisher wraps a ZeroMQ PUB socket bound to addr, sending one frame
// pair (topic, encoded ChangeSet) per committed transaction.
type Publisher struct {
	socket zmq4.Socket
}

// NewPublisher binds a PUB socket at addr (e.g. "tcp://127.0.0.1:5556")
// and returns a Publisher ready to broadcast commits.
func NewPublisher(ctx context.Context, addr string) (*Publisher, error) {
	socket := zmq4.NewPub(ctx)
	if err := socket.Listen(addr); err != nil {
		return nil, fmt.Errorf("changesbus: listen %s: %w", addr, err)
	}
	return &Publisher{socket: socket}, nil
}

// Publish broadcasts cs to every connected subscriber. It never blocks
// waiting for a subscriber to exist - PUB sockets drop messages with no
// subscriber rather than buffer them, which is the right behavior for
// a live changefeed: a subscriber that connects late should resync from
// the table's base files, not replay history through this bus.
func (p *Publisher) Publish(cs *engine.ChangeSet) error {
	msg := zmq4.NewMsgFrom([]byte(topic), cs.Encode())
	if err := p.socket.Send(msg); err != nil {
		return fmt.Errorf("changesbus: publish: %w", err)
	}
	return nil
}

// Close releases the underlying socket.
func (p *Publisher) Close() error {
	return p.socket.Close()
}
