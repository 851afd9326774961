package command

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"limit-book/src/engine"
)

// MaxLineLength is the longest command line Run accepts, terminator included.
const MaxLineLength = 64 * 1024

var (
	ErrMalformedCommand = errors.New("malformed command")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrLineTooLong      = errors.New("line too long")
)

// Book is the part of the matching engine the line protocol drives.
// Both *engine.OrderBook and *engine.Matcher satisfy it.
type Book interface {
	Add(o engine.Order) ([]engine.Fill, error)
	Amend(id int64, quantity int64) error
	Cancel(id int64) error
	PriceAt(side engine.Side, level int) (float64, error)
	SizeAt(side engine.Side, level int) (int64, error)
	Query(id int64) (engine.QueryResult, error)
}

// Processor executes one text command per line against a Book and writes the
// command's output lines to out. A failed command writes nothing.
type Processor struct {
	book Book
	out  io.Writer
}

type RunStats struct {
	Lines    int
	Rejected int
}

func NewProcessor(book Book, out io.Writer) *Processor {
	return &Processor{book: book, out: out}
}

// Run feeds every line of r to Handle. Rejected lines are logged and skipped,
// as are lines longer than MaxLineLength; only read errors and context
// cancellation stop the loop.
func (p *Processor) Run(ctx context.Context, r io.Reader) (RunStats, error) {
	var stats RunStats
	br := bufio.NewReaderSize(r, MaxLineLength)
	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line, err := readLine(br)
		switch {
		case errors.Is(err, io.EOF):
			return stats, nil
		case errors.Is(err, ErrLineTooLong):
		case err != nil:
			return stats, err
		default:
			err = p.Handle(line)
		}
		stats.Lines++
		if err != nil {
			stats.Rejected++
			log.Debug().
				Err(err).
				Int("line", stats.Lines).
				Str("command", line).
				Msg("Command rejected")
		}
	}
}

// readLine returns the next line without its terminator. A final line with no
// newline is returned as is; io.EOF is only reported once nothing is left. An
// over-long line is consumed up to its newline and reported as ErrLineTooLong.
func readLine(br *bufio.Reader) (string, error) {
	raw, err := br.ReadSlice('\n')
	switch {
	case err == nil, errors.Is(err, io.EOF) && len(raw) > 0:
		return strings.TrimRight(string(raw), "\r\n"), nil
	case !errors.Is(err, bufio.ErrBufferFull):
		return "", err
	}
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = br.ReadSlice('\n')
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return "", ErrLineTooLong
}

func (p *Processor) Handle(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	var buf bytes.Buffer
	var err error
	switch fields[0] {
	case "order":
		err = p.order(&buf, fields[1:])
	case "amend":
		err = p.amend(fields[1:])
	case "cancel":
		err = p.cancel(fields[1:])
	case "q":
		err = p.query(&buf, fields[1:])
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
	if err != nil {
		return err
	}

	_, err = buf.WriteTo(p.out)
	return err
}

// order <id> <side> <qty> <price>
func (p *Processor) order(w io.Writer, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("%w: order needs id, side, quantity and price", ErrMalformedCommand)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	side, err := engine.ParseSide(args[1])
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[2])
	if err != nil {
		return err
	}
	price, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		return fmt.Errorf("%w: price %q", ErrMalformedCommand, args[3])
	}

	fills, err := p.book.Add(engine.Order{ID: id, Side: side, Price: price, Quantity: qty})
	if err != nil {
		return err
	}
	for _, f := range fills {
		fmt.Fprintf(w, "Fill: %d@%s\n", f.Quantity, FormatPrice(f.Price))
	}
	return nil
}

// amend <id> <qty>
func (p *Processor) amend(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: amend needs id and quantity", ErrMalformedCommand)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	qty, err := parseQuantity(args[1])
	if err != nil {
		return err
	}
	return p.book.Amend(id, qty)
}

// cancel <id>
func (p *Processor) cancel(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: cancel needs id", ErrMalformedCommand)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return p.book.Cancel(id)
}

// q level <side> <level> | q order <id>
func (p *Processor) query(w io.Writer, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: q needs a subcommand", ErrMalformedCommand)
	}
	switch args[0] {
	case "level":
		if len(args) < 3 {
			return fmt.Errorf("%w: q level needs side and level", ErrMalformedCommand)
		}
		side, err := engine.ParseSide(args[1])
		if err != nil {
			return err
		}
		level, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("%w: level %q", ErrMalformedCommand, args[2])
		}
		price, err := p.book.PriceAt(side, level)
		if err != nil {
			return err
		}
		size, err := p.book.SizeAt(side, level)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s, %d, %s, %d\n", args[1], level, FormatPrice(price), size)
		return nil

	case "order":
		if len(args) < 2 {
			return fmt.Errorf("%w: q order needs id", ErrMalformedCommand)
		}
		id, err := parseID(args[1])
		if err != nil {
			return err
		}
		res, err := p.book.Query(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s, leaves=%d, filled=%d, position=%d\n",
			res.Order.Status(), res.Order.Leaves(), res.Order.FilledQty, res.Position)
		return nil
	}
	return fmt.Errorf("%w: q %q", ErrUnknownCommand, args[0])
}

// FormatPrice renders a price with up to six significant digits, dropping
// trailing zeros: 12.30 prints as 12.3 and 2.0 as 2.
func FormatPrice(price float64) string {
	return strconv.FormatFloat(price, 'g', 6, 64)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", ErrMalformedCommand, s)
	}
	return id, nil
}

func parseQuantity(s string) (int64, error) {
	qty, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity %q", ErrMalformedCommand, s)
	}
	return qty, nil
}
