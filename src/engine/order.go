package engine

import (
	"fmt"
	"math"
)

type Side int8

const (
	SideBuy Side = iota + 1
	SideSell
)

// ParseSide accepts buy/bid and sell/ask.
func ParseSide(s string) (Side, error) {
	switch s {
	case "buy", "bid":
		return SideBuy, nil
	case "sell", "ask":
		return SideSell, nil
	}
	return 0, newError(ErrInvalidSide, "unknown side %q", s)
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return fmt.Sprintf("side(%d)", int8(s))
}

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

type OrderStatus string

const (
	StatusOpen      OrderStatus = "open"
	StatusPartial   OrderStatus = "partial"
	StatusFilled    OrderStatus = "filled"
	StatusCancelled OrderStatus = "cancelled"
)

// Order is a limit order. Once submitted the book owns it; callers only ever
// see copies.
type Order struct {
	ID        int64
	Side      Side
	Price     float64
	Quantity  int64
	FilledQty int64
	Cancelled bool
}

// Fill is one trade generated by Add, priced at the resting order.
type Fill struct {
	Price      float64
	Quantity   int64
	RestingID  int64
	IncomingID int64
}

func (o Order) Leaves() int64 {
	if o.Cancelled {
		return 0
	}
	return o.Quantity - o.FilledQty
}

func (o Order) FullyFilled() bool {
	return o.FilledQty == o.Quantity
}

func (o Order) Status() OrderStatus {
	switch {
	case o.Cancelled:
		return StatusCancelled
	case o.FullyFilled():
		return StatusFilled
	case o.FilledQty > 0:
		return StatusPartial
	default:
		return StatusOpen
	}
}

func (o *Order) addFill(qty int64) {
	o.FilledQty += qty
}

// essentiallyEqual compares with a tolerance relative to the smaller magnitude.
func essentiallyEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= math.Min(math.Abs(a), math.Abs(b))*epsilon
}
