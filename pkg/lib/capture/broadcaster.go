package capture

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Subscribe once the broadcaster has been stopped.
var ErrStopped = errors.New("broadcaster is stopped")

// Broadcaster fans a value out to every subscriber without ever blocking the publisher.
// Each subscriber channel holds one value; a full channel keeps only the newest value,
// which suits wake-up notifications where only "something changed" matters.
type Broadcaster[T any] struct {
	mu          sync.Mutex
	subscribers map[chan T]struct{}
	stopped     bool
}

func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{subscribers: make(map[chan T]struct{})}
}

// Subscribe registers a new subscriber. The channel is closed by Stop or Unsubscribe.
func (b *Broadcaster[T]) Subscribe() (chan T, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return nil, ErrStopped
	}
	ch := make(chan T, 1)
	b.subscribers[ch] = struct{}{}
	return ch, nil
}

// Unsubscribe removes ch and closes it. Unknown channels are ignored.
func (b *Broadcaster[T]) Unsubscribe(ch chan T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subscribers[ch]; !ok {
		return
	}
	delete(b.subscribers, ch)
	close(ch)
}

// Publish delivers msg to every subscriber, replacing a stale pending value if needed.
func (b *Broadcaster[T]) Publish(msg T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	for ch := range b.subscribers {
		select {
		case ch <- msg:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- msg
		}
	}
}

// Stop closes every subscriber channel. Later Publish calls are dropped.
func (b *Broadcaster[T]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
