package engine

import (
	"sync"
)

// Matcher serializes access to a single OrderBook so it can be shared by
// concurrent callers. The book itself carries no locking.
type Matcher struct {
	book *OrderBook
	mu   sync.Mutex
}

func NewMatcher(book *OrderBook) *Matcher {
	return &Matcher{book: book}
}

func (m *Matcher) TickSize() float64 {
	return m.book.TickSize()
}

func (m *Matcher) Add(o Order) ([]Fill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Add(o)
}

func (m *Matcher) Amend(id int64, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Amend(id, quantity)
}

func (m *Matcher) Cancel(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Cancel(id)
}

func (m *Matcher) PriceAt(side Side, level int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.PriceAt(side, level)
}

func (m *Matcher) SizeAt(side Side, level int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.SizeAt(side, level)
}

// Level returns price and size of one level under a single lock so the pair
// is consistent.
func (m *Matcher) Level(side Side, level int) (float64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price, err := m.book.PriceAt(side, level)
	if err != nil {
		return 0, 0, err
	}
	size, err := m.book.SizeAt(side, level)
	if err != nil {
		return 0, 0, err
	}
	return price, size, nil
}

func (m *Matcher) Query(id int64) (QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Query(id)
}

func (m *Matcher) OpenOrders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.OpenOrders()
}

// GetOrderBookSnapshot returns up to depth aggregated levels per side.
func (m *Matcher) GetOrderBookSnapshot(depth int) (bids []LevelInfo, asks []LevelInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.Snapshot(SideBuy, depth), m.book.Snapshot(SideSell, depth)
}
