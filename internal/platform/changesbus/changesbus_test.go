package changesbus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"tagtable/internal/engine"
)

func TestPublishSubscribeRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pub, err := NewPublisher(ctx, "tcp://127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}
	defer pub.Close()

	addr := pub.socket.Addr().String()
	sub, err := NewSubscriber(ctx, "tcp://"+addr)
	if err != nil {
		t.Fatalf("NewSubscriber: %v", err)
	}
	defer sub.Close()

	// Give the SUB socket time to establish its connection before the
	// PUB socket sends; PUB drops messages with no connected subscriber.
	time.Sleep(200 * time.Millisecond)

	cs := &engine.ChangeSet{
		Revision:  1,
		TableName: "t",
		BlockSize: 3,
		Blocks:    map[uint32][]byte{0: {1, 2, 3}},
	}

	done := make(chan error, 1)
	go func() {
		got, err := sub.Next(ctx)
		if err != nil {
			done <- err
			return
		}
		if got.Revision != cs.Revision || got.TableName != cs.TableName {
			done <- fmt.Errorf("got revision %d table %q, want %d %q", got.Revision, got.TableName, cs.Revision, cs.TableName)
			return
		}
		done <- nil
	}()

	if err := pub.Publish(cs); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("subscriber: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published changeset")
	}
}
