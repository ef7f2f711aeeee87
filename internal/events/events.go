// Package events fans out change notifications to per-user subscribers so
// clients can refresh their views after a mutation.
package events

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

type Entity string

const (
	EntityTransaction Entity = "transaction"
	EntityGoal        Entity = "goal"
	EntityInvestment  Entity = "investment"
	EntityNudge       Entity = "nudge"
	EntityAccount     Entity = "account"
	EntityProfile     Entity = "profile"
)

type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
)

// Change describes one committed mutation of a user's data.
type Change struct {
	UserID string    `json:"userId"`
	Entity Entity    `json:"entity"`
	Op     Op        `json:"op"`
	ID     string    `json:"id"`
	At     time.Time `json:"at"`
}

// Publisher accepts committed changes.
type Publisher interface {
	Publish(ctx context.Context, c Change) error
}

// Nop discards every change.
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }

// DefaultBuffer is the per-subscription channel capacity.
const DefaultBuffer = 16

// Subscription receives the changes of one user until closed.
type Subscription struct {
	C      <-chan Change
	ch     chan Change
	userID string
	broker *Broker
	once   sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.broker.remove(s) })
}

// Broker is an in-process hub. Publish never blocks: a subscriber whose
// buffer is full misses the change and the drop is counted.
type Broker struct {
	mu      sync.RWMutex
	subs    map[string]map[*Subscription]struct{}
	buffer  int
	dropped atomic.Int64
	closed  bool
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Broker{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe registers interest in userID's changes.
func (b *Broker) Subscribe(userID string) *Subscription {
	ch := make(chan Change, b.buffer)
	s := &Subscription{C: ch, ch: ch, userID: userID, broker: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return s
	}
	set, ok := b.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		b.subs[userID] = set
	}
	set[s] = struct{}{}
	return s
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[s.userID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, s.userID)
	}
	close(s.ch)
}

// Publish delivers c to the subscribers of c.UserID.
func (b *Broker) Publish(_ context.Context, c Change) error {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs[c.UserID] {
		select {
		case s.ch <- c:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Subscribers returns how many subscriptions userID has.
func (b *Broker) Subscribers(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[userID])
}

// Dropped returns how many deliveries were skipped because a buffer was full.
func (b *Broker) Dropped() int64 {
	return b.dropped.Load()
}

// Close ends every subscription. Later subscriptions are closed immediately.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for user, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
		delete(b.subs, user)
	}
}

// Multi publishes to every publisher in order and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, c Change) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, c); err != nil && first == nil {
			first = err
		}
	}
	return first
}
