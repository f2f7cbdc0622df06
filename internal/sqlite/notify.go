package sqlite

import (
	"sync"

	"github.com/mesh-intelligence/daybook/pkg/types"
)

// subscriptionBuffer bounds the per-subscriber event queue. A consumer
// that stalls this far behind loses events rather than blocking the
// backend.
const subscriptionBuffer = 64

// notifier fans change events out to per-table subscribers, each on
// its own delivery goroutine.
type notifier struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

func newNotifier() *notifier {
	return &notifier{subs: make(map[string][]*subscription)}
}

type subscription struct {
	notifier *notifier
	table    string
	events   chan types.ChangeEvent
	done     chan struct{}
	once     sync.Once
}

// Unsubscribe stops delivery and removes the subscription. Idempotent.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		close(s.done)
		s.notifier.remove(s)
	})
}

func (n *notifier) subscribe(table string, handler types.ChangeHandler) *subscription {
	s := &subscription{
		notifier: n,
		table:    table,
		events:   make(chan types.ChangeEvent, subscriptionBuffer),
		done:     make(chan struct{}),
	}

	go func() {
		for {
			select {
			case event := <-s.events:
				handler(event)
			case <-s.done:
				return
			}
		}
	}()

	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs[table] = append(n.subs[table], s)
	return s
}

func (n *notifier) publish(event types.ChangeEvent) {
	n.mu.Lock()
	subs := make([]*subscription, len(n.subs[event.Table]))
	copy(subs, n.subs[event.Table])
	n.mu.Unlock()

	for _, s := range subs {
		select {
		case s.events <- event:
		default:
			// Queue full; the subscriber is expected to reload.
		}
	}
}

func (n *notifier) remove(s *subscription) {
	n.mu.Lock()
	defer n.mu.Unlock()
	subs := n.subs[s.table]
	for i, candidate := range subs {
		if candidate == s {
			n.subs[s.table] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

func (n *notifier) closeAll() {
	n.mu.Lock()
	var all []*subscription
	for _, subs := range n.subs {
		all = append(all, subs...)
	}
	n.subs = make(map[string][]*subscription)
	n.mu.Unlock()

	for _, s := range all {
		s.once.Do(func() { close(s.done) })
	}
}
