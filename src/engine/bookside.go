package engine

import (
	"slices"

	"github.com/google/btree"
)

// priceLevel is the FIFO queue of orders resting at one quantized price.
type priceLevel struct {
	ticks  int64
	orders []handle // time priority
}

func (l *priceLevel) position(h handle) int {
	return slices.Index(l.orders, h)
}

func (l *priceLevel) remove(h handle) bool {
	i := l.position(h)
	if i < 0 {
		return false
	}
	l.orders = slices.Delete(l.orders, i, i+1)
	return true
}

// bookSide indexes one side of the book by price, ascending. Empty levels
// are deleted as soon as they drain.
type bookSide struct {
	side   Side
	levels *btree.BTreeG[*priceLevel]
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side: side,
		levels: btree.NewG(32, func(a, b *priceLevel) bool {
			return a.ticks < b.ticks
		}),
	}
}

func (s *bookSide) level(ticks int64) *priceLevel {
	l, ok := s.levels.Get(&priceLevel{ticks: ticks})
	if !ok {
		return nil
	}
	return l
}

// insert appends h to the back of the level at ticks, creating it if absent.
func (s *bookSide) insert(ticks int64, h handle) {
	l := s.level(ticks)
	if l == nil {
		l = &priceLevel{ticks: ticks}
		s.levels.ReplaceOrInsert(l)
	}
	l.orders = append(l.orders, h)
}

func (s *bookSide) remove(ticks int64, h handle) bool {
	l := s.level(ticks)
	if l == nil {
		return false
	}
	removed := l.remove(h)

	// edge case: remove empty price level
	if len(l.orders) == 0 {
		s.levels.Delete(l)
	}
	return removed
}

// scan visits levels from best to worst price until fn returns false.
func (s *bookSide) scan(fn func(l *priceLevel) bool) {
	if s.side == SideBuy {
		s.levels.Descend(fn)
		return
	}
	s.levels.Ascend(fn)
}

// levelAt returns the n-th level counted from the best price.
func (s *bookSide) levelAt(n int) (*priceLevel, error) {
	if n < 0 || n >= s.levels.Len() {
		return nil, newError(ErrLevelNotFound, "no such level in the book: %d on side %s", n, s.side)
	}
	var found *priceLevel
	i := 0
	s.scan(func(l *priceLevel) bool {
		if i == n {
			found = l
			return false
		}
		i++
		return true
	})
	return found, nil
}

func (s *bookSide) depth() int {
	return s.levels.Len()
}

// crosses reports whether an incoming order on the opposite side at
// incomingTicks can trade against a level of this side at levelTicks.
func (s *bookSide) crosses(incomingTicks, levelTicks int64) bool {
	if s.side == SideSell {
		return incomingTicks >= levelTicks
	}
	return incomingTicks <= levelTicks
}
