package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"insider-watch/models"
)

// Snapshot is the filtered result of one successful refresh. It is never
// modified after it has been published to a Store.
type Snapshot struct {
	ID           uuid.UUID            `json:"id"`
	FetchedAt    time.Time            `json:"fetched_at"`
	Transactions []models.Transaction `json:"transactions"`
	Received     int                  `json:"received"`
}

// New builds a snapshot from a raw provider response, keeping only US equity
// tickers in provider order
func New(raw []models.Transaction, fetchedAt time.Time) *Snapshot {
	return &Snapshot{
		ID:           uuid.New(),
		FetchedAt:    fetchedAt,
		Transactions: models.FilterUSEquities(raw),
		Received:     len(raw),
	}
}

// Empty is the snapshot served before the first successful refresh
var Empty = &Snapshot{Transactions: []models.Transaction{}}

// IsEmpty reports whether no refresh has been published yet
func (s *Snapshot) IsEmpty() bool {
	return s.ID == uuid.Nil
}

// Len returns the number of transactions
func (s *Snapshot) Len() int {
	return len(s.Transactions)
}

// Age returns how long ago the snapshot was fetched, or 0 for the empty snapshot
func (s *Snapshot) Age(now time.Time) time.Duration {
	if s.IsEmpty() {
		return 0
	}
	return now.Sub(s.FetchedAt)
}

// Subscriber is called with every newly published snapshot
type Subscriber func(*Snapshot)

// Store holds the current snapshot. Readers never block on writers.
type Store struct {
	current atomic.Pointer[Snapshot]

	mu          sync.RWMutex
	subscribers []Subscriber

	// notifyMu orders notifications so the last one delivered always
	// carries the current snapshot
	notifyMu sync.Mutex
}

// NewStore creates a store serving the empty snapshot
func NewStore() *Store {
	s := &Store{}
	s.current.Store(Empty)
	return s
}

// Load returns the current snapshot. It never returns nil.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap publishes next and returns the snapshot it replaced. Subscribers are
// notified synchronously after the swap with the snapshot current at the time
// of notification, so overlapping swaps never leave a stale one delivered last.
// Subscribers must not block or call Swap.
func (s *Store) Swap(next *Snapshot) *Snapshot {
	if next == nil {
		return s.Load()
	}
	prev := s.current.Swap(next)

	s.mu.RLock()
	subs := s.subscribers
	s.mu.RUnlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	current := s.Load()
	for _, fn := range subs {
		fn(current)
	}
	return prev
}

// Subscribe registers fn to be called on every Swap
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers[:len(s.subscribers):len(s.subscribers)], fn)
}
