package protocol

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Reader decodes instruction records from CSV input.
//
// Record layout by first field:
//
//	N, user, symbol, price, quantity, side(B/S), user_order_id
//	C, user, user_order_id
//	F
//
// Lines starting with '#' are comments. Fields are trimmed and the number of
// fields may vary between records.
type Reader struct {
	csv  *csv.Reader
	line int
}

// NewReader returns a Reader reading from r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	return &Reader{csv: cr}
}

// Read returns the next instruction. It returns io.EOF once the input is exhausted.
// Any other error wraps ErrMalformedRecord and is fatal for the stream.
func (r *Reader) Read() (*Instruction, error) {
	record, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	r.line, _ = r.csv.FieldPos(0)

	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	ins, err := ParseRecord(record)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line, err)
	}
	return ins, nil
}

// Line returns the input line of the last record returned by Read.
func (r *Reader) Line() int {
	return r.line
}

// ParseRecord converts one trimmed CSV record into a validated Instruction.
func ParseRecord(record []string) (*Instruction, error) {
	if len(record) == 0 {
		return nil, fmt.Errorf("%w: empty record", ErrMalformedRecord)
	}

	var (
		ins *Instruction
		err error
	)

	switch record[0] {
	case "N":
		ins, err = parseNewOrder(record)
	case "C":
		ins, err = parseCancel(record)
	case "F":
		ins = Flush()
	default:
		return nil, fmt.Errorf("%w: unknown record kind %q", ErrMalformedRecord, record[0])
	}
	if err != nil {
		return nil, err
	}

	if err := ins.Validate(); err != nil {
		return nil, err
	}
	return ins, nil
}

func parseNewOrder(record []string) (*Instruction, error) {
	if len(record) < 7 {
		return nil, fmt.Errorf("%w: new order needs 7 fields, got %d", ErrMalformedRecord, len(record))
	}

	user, err := parseInt("user", record[1])
	if err != nil {
		return nil, err
	}
	price, err := parseInt("price", record[3])
	if err != nil {
		return nil, err
	}
	size, err := parseInt("quantity", record[4])
	if err != nil {
		return nil, err
	}

	var side Side
	switch record[5] {
	case "B":
		side = SideBuy
	case "S":
		side = SideSell
	default:
		return nil, fmt.Errorf("%w: invalid side %q", ErrMalformedRecord, record[5])
	}

	userOrderID, err := parseInt("user_order_id", record[6])
	if err != nil {
		return nil, err
	}

	return NewOrder(user, record[2], price, size, side, userOrderID), nil
}

func parseCancel(record []string) (*Instruction, error) {
	if len(record) < 3 {
		return nil, fmt.Errorf("%w: cancel needs 3 fields, got %d", ErrMalformedRecord, len(record))
	}

	user, err := parseInt("user", record[1])
	if err != nil {
		return nil, err
	}
	userOrderID, err := parseInt("user_order_id", record[2])
	if err != nil {
		return nil, err
	}

	return CancelOrder(user, userOrderID), nil
}

func parseInt(field string, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", ErrMalformedRecord, field, s)
	}
	return v, nil
}
