package engine

import (
	"math"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultEpsilon is the relative tolerance used when checking that a price is
// a multiple of the tick size.
const DefaultEpsilon = 1e-7

// Tick counts above 2^53 no longer map one to one onto float64 prices.
const maxTicks = 1 << 53

// MaxQuantity bounds a single order so that summing a level's leaves cannot
// overflow.
const MaxQuantity = math.MaxInt32

type OrderBook struct {
	tickSize float64
	epsilon  float64
	sides    [2]*bookSide
	orders   *registry
	logger   zerolog.Logger
}

type Option func(*OrderBook)

// WithLogger routes the book's rejection and trace logs to logger instead of
// the global one.
func WithLogger(logger zerolog.Logger) Option {
	return func(b *OrderBook) {
		b.logger = logger
	}
}

func WithEpsilon(epsilon float64) Option {
	return func(b *OrderBook) {
		if epsilon > 0 {
			b.epsilon = epsilon
		}
	}
}

// QueryResult is a point-in-time copy of an order together with its position
// in its level's queue, or -1 once the order left the book.
type QueryResult struct {
	Order    Order
	Position int
}

type LevelInfo struct {
	Price  float64
	Size   int64
	Orders int
}

func NewOrderBook(tickSize float64, opts ...Option) (*OrderBook, error) {
	b := &OrderBook{
		tickSize: tickSize,
		epsilon:  DefaultEpsilon,
		sides:    [2]*bookSide{newBookSide(SideBuy), newBookSide(SideSell)},
		orders:   newRegistry(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	if !(tickSize > 0) {
		return nil, b.reject(ErrInvalidTickSize, "tick size must be positive, but is %g", tickSize)
	}
	return b, nil
}

func (b *OrderBook) TickSize() float64 {
	return b.tickSize
}

// Add validates o, crosses it against the contra side and rests whatever is
// left. The returned fills are in execution order: best price first, then
// arrival order within a price.
func (b *OrderBook) Add(o Order) ([]Fill, error) {
	ticks, err := b.validateNew(o)
	if err != nil {
		return nil, err
	}

	incoming := Order{ID: o.ID, Side: o.Side, Price: o.Price, Quantity: o.Quantity}
	contra := b.side(o.Side.Opposite())

	var fills []Fill
	var filled []handle
	contra.scan(func(l *priceLevel) bool {
		if incoming.FullyFilled() || !contra.crosses(ticks, l.ticks) {
			return false
		}
		for _, h := range l.orders {
			if incoming.FullyFilled() {
				break
			}
			resting := b.orders.order(h)
			qty := min(incoming.Leaves(), resting.Leaves())
			fills = append(fills, Fill{
				Price:      resting.Price,
				Quantity:   qty,
				RestingID:  resting.ID,
				IncomingID: incoming.ID,
			})
			incoming.addFill(qty)
			resting.addFill(qty)
			if resting.FullyFilled() {
				filled = append(filled, h)
			}
		}
		return true
	})

	// levels must not change while the tree is being walked
	for _, h := range filled {
		resting := b.orders.order(h)
		contra.remove(b.ticks(resting.Price), h)
		b.orders.archive(resting.ID, stateFilled)
	}

	if incoming.FullyFilled() {
		b.orders.admit(incoming, stateFilled)
	} else {
		h := b.orders.admit(incoming, stateResting)
		b.side(incoming.Side).insert(ticks, h)
	}

	b.logger.Trace().
		Int64("order_id", incoming.ID).
		Str("side", incoming.Side.String()).
		Float64("price", incoming.Price).
		Int64("quantity", incoming.Quantity).
		Int("fills", len(fills)).
		Msg("Order added")

	return fills, nil
}

// Amend changes the quantity of a resting order. Increasing the quantity sends
// the order to the back of its level; decreasing it keeps its place.
func (b *OrderBook) Amend(id int64, quantity int64) error {
	if err := b.validateQuantity(quantity); err != nil {
		return err
	}
	h, err := b.resting(id)
	if err != nil {
		return err
	}

	o := b.orders.order(h)
	switch {
	case quantity == o.Quantity:
		return nil
	case quantity > o.Quantity:
		side := b.side(o.Side)
		ticks := b.ticks(o.Price)
		side.remove(ticks, h)
		o.Quantity = quantity
		side.insert(ticks, h)
	default:
		if quantity <= o.FilledQty {
			return b.reject(ErrAmendBelowFilled, "cannot amend order %d to %d, %d already filled", id, quantity, o.FilledQty)
		}
		o.Quantity = quantity
	}
	return nil
}

func (b *OrderBook) Cancel(id int64) error {
	h, err := b.resting(id)
	if err != nil {
		return err
	}

	o := b.orders.order(h)
	b.side(o.Side).remove(b.ticks(o.Price), h)
	o.Cancelled = true
	b.orders.archive(id, stateCancelled)
	return nil
}

// PriceAt returns the price of the n-th best level on side.
func (b *OrderBook) PriceAt(side Side, level int) (float64, error) {
	l, err := b.levelAt(side, level)
	if err != nil {
		return 0, err
	}
	return b.orders.order(l.orders[0]).Price, nil
}

// SizeAt returns the total leaves quantity of the n-th best level on side.
func (b *OrderBook) SizeAt(side Side, level int) (int64, error) {
	l, err := b.levelAt(side, level)
	if err != nil {
		return 0, err
	}
	return b.levelSize(l), nil
}

func (b *OrderBook) Query(id int64) (QueryResult, error) {
	e, ok := b.orders.lookup(id)
	if !ok {
		return QueryResult{}, b.reject(ErrOrderNotFound, "order with id=%d doesn't exist", id)
	}

	o := b.orders.order(e.h)
	if e.state != stateResting {
		return QueryResult{Order: *o, Position: -1}, nil
	}
	l := b.side(o.Side).level(b.ticks(o.Price))
	if l == nil {
		return QueryResult{}, b.reject(ErrLevelNotFound, "order with id=%d has no price level", id)
	}
	return QueryResult{Order: *o, Position: l.position(e.h)}, nil
}

// Depth returns the number of non-empty levels on side.
func (b *OrderBook) Depth(side Side) int {
	if !side.Valid() {
		return 0
	}
	return b.side(side).depth()
}

// OpenOrders returns the number of resting orders on both sides.
func (b *OrderBook) OpenOrders() int {
	return b.orders.restingCount()
}

// Snapshot aggregates up to depth levels of side, best first.
func (b *OrderBook) Snapshot(side Side, depth int) []LevelInfo {
	if !side.Valid() || depth <= 0 {
		return nil
	}
	levels := make([]LevelInfo, 0, min(depth, b.Depth(side)))
	b.side(side).scan(func(l *priceLevel) bool {
		if len(levels) >= depth {
			return false
		}
		levels = append(levels, LevelInfo{
			Price:  b.orders.order(l.orders[0]).Price,
			Size:   b.levelSize(l),
			Orders: len(l.orders),
		})
		return true
	})
	return levels
}

// validateNew checks a submission before anything is mutated and returns its
// quantized price.
func (b *OrderBook) validateNew(o Order) (int64, error) {
	if e, ok := b.orders.lookup(o.ID); ok {
		if e.state == stateResting {
			return 0, b.reject(ErrDuplicateOrder, "order with id=%d already exists", o.ID)
		}
		return 0, b.reject(ErrOrderArchived, "order with id=%d was already %s, cannot add again", o.ID, e.state)
	}
	if !o.Side.Valid() {
		return 0, b.reject(ErrInvalidSide, "side must be buy or sell, %s given", o.Side)
	}
	ticks, err := b.quantize(o.Price)
	if err != nil {
		return 0, err
	}
	if err := b.validateQuantity(o.Quantity); err != nil {
		return 0, err
	}
	return ticks, nil
}

func (b *OrderBook) quantize(price float64) (int64, error) {
	if !(price > 0) {
		return 0, b.reject(ErrInvalidPrice, "price must be positive, %g given", price)
	}
	units := price / b.tickSize
	rounded := math.Round(units)
	if rounded > maxTicks {
		return 0, b.reject(ErrInvalidPrice, "price %g is more than 2^53 ticks of %g", price, b.tickSize)
	}
	if !essentiallyEqual(units, rounded, b.epsilon) {
		return 0, b.reject(ErrInvalidPrice, "price must be of given tick size %g, but it's not: %g", b.tickSize, price)
	}
	return int64(rounded), nil
}

func (b *OrderBook) validateQuantity(quantity int64) error {
	if quantity <= 0 {
		return b.reject(ErrInvalidQuantity, "quantity must be positive, %d given", quantity)
	}
	if quantity > MaxQuantity {
		return b.reject(ErrInvalidQuantity, "quantity must not exceed %d, %d given", MaxQuantity, quantity)
	}
	return nil
}

func (b *OrderBook) resting(id int64) (handle, error) {
	e, ok := b.orders.lookup(id)
	if !ok {
		return 0, b.reject(ErrOrderNotResting, "order with id=%d doesn't exist", id)
	}
	if e.state != stateResting {
		return 0, b.reject(ErrOrderNotResting, "order with id=%d is already %s", id, e.state)
	}
	return e.h, nil
}

func (b *OrderBook) levelAt(side Side, n int) (*priceLevel, error) {
	if !side.Valid() {
		return nil, b.reject(ErrInvalidSide, "side must be buy or sell, %s given", side)
	}
	l, err := b.side(side).levelAt(n)
	if err != nil {
		return nil, b.logged(err)
	}
	return l, nil
}

func (b *OrderBook) levelSize(l *priceLevel) int64 {
	var size int64
	for _, h := range l.orders {
		size += b.orders.order(h).Leaves()
	}
	return size
}

// ticks is only called for prices that already passed quantize.
func (b *OrderBook) ticks(price float64) int64 {
	return int64(math.Round(price / b.tickSize))
}

func (b *OrderBook) side(s Side) *bookSide {
	if s == SideBuy {
		return b.sides[0]
	}
	return b.sides[1]
}
