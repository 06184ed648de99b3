package pagination

import "sync"

// State is a read-only snapshot of the controller.
type State[T Item] struct {
	// Items is the accumulated list in arrival order.
	Items []T

	// NewlyLoaded holds only the most recent page's items.
	NewlyLoaded []T

	// Loading is true while a page request is outstanding.
	Loading bool

	// Page is the next page that will be requested (1-indexed).
	Page int

	// Version increases by one on every state change.
	Version uint64
}

type subscription[T Item] struct {
	id int
	fn func(State[T])
}

// notifier delivers state snapshots to subscribers in the order they were
// produced. Snapshots are queued while the controller lock is held and drained
// afterwards by whichever goroutine finds the queue idle, so a subscriber may
// call back into the controller without deadlocking.
type notifier[T Item] struct {
	mu       sync.Mutex
	nextID   int
	subs     []subscription[T]
	pending  []State[T]
	draining bool
}

func (n *notifier[T]) subscribe(fn func(State[T])) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { n.unsubscribe(id) })
	}
}

func (n *notifier[T]) unsubscribe(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, sub := range n.subs {
		if sub.id == id {
			n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
			return
		}
	}
}

func (n *notifier[T]) active() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs) > 0
}

func (n *notifier[T]) enqueue(s State[T]) {
	n.mu.Lock()
	n.pending = append(n.pending, s)
	n.mu.Unlock()
}

func (n *notifier[T]) drain() {
	n.mu.Lock()
	if n.draining {
		n.mu.Unlock()
		return
	}
	n.draining = true

	for len(n.pending) > 0 {
		s := n.pending[0]
		n.pending = n.pending[1:]
		subs := append([]subscription[T](nil), n.subs...)
		n.mu.Unlock()

		for _, sub := range subs {
			sub.fn(s)
		}

		n.mu.Lock()
	}

	n.draining = false
	n.mu.Unlock()
}
