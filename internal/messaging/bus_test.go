package messaging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type publishedMsg struct {
	subject string
	data    []byte
}

// fakeBus is an in-memory Bus.
type fakeBus struct {
	mu        sync.Mutex
	ready     chan struct{}
	subs      map[string][]func([]byte)
	published []publishedMsg
	replies   map[string]func([]byte) ([]byte, error)
	requests  map[string][]byte
}

func newFakeBus() *fakeBus {
	b := &fakeBus{
		ready:    make(chan struct{}),
		subs:     map[string][]func([]byte){},
		replies:  map[string]func([]byte) ([]byte, error){},
		requests: map[string][]byte{},
	}
	close(b.ready)
	return b
}

func (b *fakeBus) Ready() <-chan struct{} {
	return b.ready
}

func (b *fakeBus) Publish(subject string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedMsg{subject: subject, data: data})
	return nil
}

func (b *fakeBus) Request(_ context.Context, subject string, data []byte) ([]byte, error) {
	b.mu.Lock()
	reply, ok := b.replies[subject]
	b.requests[subject] = data
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("no responders for %s", subject)
	}
	return reply(data)
}

func (b *fakeBus) Subscribe(subject string, handler func(data []byte)) (func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[subject] = append(b.subs[subject], handler)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, subject)
	}, nil
}

func (b *fakeBus) deliver(subject string, data []byte) {
	b.mu.Lock()
	handlers := b.subs[subject]
	b.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
}

func (b *fakeBus) subscriptions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// waitForSubscriptions blocks until n subjects have subscribers.
func (b *fakeBus) waitForSubscriptions(t *testing.T, n int) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for b.subscriptions() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d subscriptions, have %d", n, b.subscriptions())
		}
		time.Sleep(time.Millisecond)
	}
}

func (b *fakeBus) lastPublished() publishedMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		return publishedMsg{}
	}
	return b.published[len(b.published)-1]
}
