// Package capture records the stdout/stderr of processes launched by the local
// helpers so they can be replayed from the start and followed live.
package capture

import (
	"context"
	"sync"
	"sync/atomic"
)

// node is an element of the append-only list. The sentinel head carries no data.
type node struct {
	data []byte
	next atomic.Pointer[node]
}

// Buffer is an append-only, replayable byte stream. Readers walk the list
// without locks; writers serialize on mu.
type Buffer struct {
	head *node

	mu     sync.Mutex
	tail   *node
	size   int
	closed bool

	notify *Broadcaster[struct{}]
}

// NewBuffer creates an empty, open Buffer.
func NewBuffer() *Buffer {
	sentinel := &node{}
	return &Buffer{
		head:   sentinel,
		tail:   sentinel,
		notify: NewBroadcaster[struct{}](),
	}
}

// Write implements io.Writer. p is copied, so callers may reuse it.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b.append(append([]byte(nil), p...))
	return len(p), nil
}

func (b *Buffer) append(data []byte) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	n := &node{data: data}
	b.tail.next.Store(n)
	b.tail = n
	b.size += len(data)
	b.mu.Unlock()

	b.notify.Publish(struct{}{})
}

// Close marks the end of the stream; subscribers drain what is left and finish.
func (b *Buffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.notify.Stop()
}

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Bytes returns a copy of everything written so far.
func (b *Buffer) Bytes() []byte {
	out := make([]byte, 0, b.Len())
	for cur := b.head.next.Load(); cur != nil; cur = cur.next.Load() {
		out = append(out, cur.data...)
	}
	return out
}

// String returns everything written so far.
func (b *Buffer) String() string {
	return string(b.Bytes())
}

// Subscribe replays the stream from the beginning and then follows it until
// Close or ctx is done. The returned channel is closed when the subscription ends.
func (b *Buffer) Subscribe(ctx context.Context, capacity int) <-chan []byte {
	ch := make(chan []byte, capacity)
	wake, err := b.notify.Subscribe()
	if err != nil {
		wake = nil
	}
	go b.follow(ctx, wake, ch)
	return ch
}

func (b *Buffer) follow(ctx context.Context, wake chan struct{}, ch chan []byte) {
	defer close(ch)
	if wake != nil {
		defer b.notify.Unsubscribe(wake)
	}

	prev := b.head
	for {
		next := prev.next.Load()
		if next != nil {
			select {
			case ch <- next.data:
			case <-ctx.Done():
				return
			}
			prev = next
			continue
		}
		if wake == nil {
			return
		}
		select {
		case _, ok := <-wake:
			if !ok {
				// Closed: anything appended before Close is already linked; drain it.
				wake = nil
			}
		case <-ctx.Done():
			return
		}
	}
}
