package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a TradingError. Kinds are usable with errors.Is.
type ErrorKind string

func (k ErrorKind) Error() string {
	return string(k)
}

const (
	ErrInvalidTickSize  ErrorKind = "invalid tick size"
	ErrDuplicateOrder   ErrorKind = "order already exists"
	ErrOrderArchived    ErrorKind = "order already archived"
	ErrInvalidSide      ErrorKind = "invalid side"
	ErrInvalidPrice     ErrorKind = "invalid price"
	ErrInvalidQuantity  ErrorKind = "invalid quantity"
	ErrOrderNotResting  ErrorKind = "order not resting"
	ErrAmendBelowFilled ErrorKind = "amend below filled quantity"
	ErrLevelNotFound    ErrorKind = "level not found"
	ErrOrderNotFound    ErrorKind = "order not found"
)

type TradingError struct {
	Kind    ErrorKind
	Message string
}

func (e *TradingError) Error() string {
	return e.Message
}

func (e *TradingError) Unwrap() error {
	return e.Kind
}

func newError(kind ErrorKind, format string, args ...any) *TradingError {
	return &TradingError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// reject logs the failure on the book's logger and returns it as a
// TradingError.
func (b *OrderBook) reject(kind ErrorKind, format string, args ...any) error {
	return b.logged(newError(kind, format, args...))
}

func (b *OrderBook) logged(err error) error {
	var te *TradingError
	if errors.As(err, &te) {
		b.logger.Debug().
			Str("kind", string(te.Kind)).
			Msg(te.Message)
	}
	return err
}
