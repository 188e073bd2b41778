package mailbox

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/danmuck/rsvpctl/internal/logging"
)

// DefaultQueueDepth is the per-address buffer of the in-memory mailbox.
const DefaultQueueDepth = 256

// Memory is an in-process mailbox. Each address owns one buffered queue, so
// envelopes sent before a subscriber attaches are kept until read.
type Memory struct {
	mu      sync.Mutex
	depth   int
	inboxes map[string]*inbox
	closed  bool
	done    chan struct{}
	log     zerolog.Logger
}

// inbox is one address's queue. front holds envelopes a cancelled subscriber
// took but never delivered; they are read before q so order is kept.
type inbox struct {
	q     chan Envelope
	mu    sync.Mutex
	front []Envelope
	wake  chan struct{}
}

func (b *inbox) takeFront() (Envelope, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.front) == 0 {
		return Envelope{}, false
	}
	env := b.front[0]
	b.front = b.front[1:]
	return env, true
}

func (b *inbox) pushFront(env Envelope) {
	b.mu.Lock()
	b.front = append([]Envelope{env}, b.front...)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.front) + len(b.q)
}

var _ Mailbox = (*Memory)(nil)

func NewMemory(depth int) *Memory {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}
	return &Memory{
		depth:   depth,
		inboxes: make(map[string]*inbox),
		done:    make(chan struct{}),
		log:     logging.Component("mailbox.memory"),
	}
}

func (m *Memory) lookup(address string) (*inbox, error) {
	if err := checkAddress(address); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	b, ok := m.inboxes[address]
	if !ok {
		b = &inbox{q: make(chan Envelope, m.depth), wake: make(chan struct{}, 1)}
		m.inboxes[address] = b
	}
	return b, nil
}

// Send enqueues env for dest, blocking while the queue is full.
func (m *Memory) Send(ctx context.Context, dest string, env Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	b, err := m.lookup(dest)
	if err != nil {
		return err
	}
	select {
	case b.q <- env:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe returns a channel draining address's queue until ctx is done.
// Concurrent subscribers of one address compete for envelopes. An envelope
// taken but not delivered before ctx ends goes back to the head of the queue.
func (m *Memory) Subscribe(ctx context.Context, address string) (<-chan Envelope, error) {
	b, err := m.lookup(address)
	if err != nil {
		return nil, err
	}
	out := make(chan Envelope)
	go func() {
		defer close(out)
		for {
			env, ok := b.takeFront()
			if !ok {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case <-b.wake:
					continue
				case env = <-b.q:
				}
			}
			select {
			case out <- env:
			case <-ctx.Done():
				b.pushFront(env)
				m.log.Debug().Str("address", address).Str("id", env.ID).Msg("requeued undelivered envelope")
				return
			case <-m.done:
				return
			}
		}
	}()
	return out, nil
}

// Pending reports how many envelopes wait for address.
func (m *Memory) Pending(address string) int {
	m.mu.Lock()
	b, ok := m.inboxes[address]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return b.len()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}
