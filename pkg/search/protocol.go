package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/aleksaelezovic/rofi-tracker/pkg/cursor"
)

// Protocol selects how the indexing service delivers query results
type Protocol int

const (
	// ProtocolInline replies with the result table as an array of string
	// arrays in the bus message itself (Tracker 2).
	ProtocolInline Protocol = iota + 1

	// ProtocolCursor replies with the column names and streams the rows as a
	// binary cursor over a pipe passed with the call (Tracker 3).
	ProtocolCursor
)

func (p Protocol) String() string {
	switch p {
	case ProtocolInline:
		return "inline"
	case ProtocolCursor:
		return "cursor"
	default:
		return fmt.Sprintf("Protocol(%d)", int(p))
	}
}

// ParseProtocol parses a protocol name. Service generations are accepted as
// aliases.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inline", "tracker2":
		return ProtocolInline, nil
	case "cursor", "tracker3":
		return ProtocolCursor, nil
	default:
		return 0, fmt.Errorf("unknown protocol %q", s)
	}
}

// Reply is the raw answer to one query
type Reply struct {
	Protocol Protocol

	// Columns holds the variable names the service advertised. Only the
	// cursor protocol reports them.
	Columns []string

	// Rows holds the inline result table
	Rows [][]string

	// Cursor holds the bytes read from the side channel
	Cursor []byte
}

// Transport sends a query to the indexing service
type Transport interface {
	// Protocol reports which reply form the transport produces
	Protocol() Protocol

	// Query runs a SPARQL query and returns the undecoded reply
	Query(ctx context.Context, sparql string) (*Reply, error)
}

// ColumnCount returns the column count advertised for the reply. Inline
// replies carry no advertisement, so the width of the first row is used and
// expected is returned for an empty table.
func (r *Reply) ColumnCount(expected int) int {
	if r.Protocol == ProtocolCursor || len(r.Columns) > 0 {
		return len(r.Columns)
	}
	if len(r.Rows) > 0 {
		return len(r.Rows[0])
	}
	return expected
}

// DecodeRows turns the reply into rows of the given width. The advertised
// column count is checked before any bytes are decoded.
func (r *Reply) DecodeRows(d *cursor.Decoder, columns int) ([]cursor.Row, error) {
	if err := checkColumns(r.ColumnCount(columns), columns); err != nil {
		return nil, err
	}

	switch r.Protocol {
	case ProtocolCursor:
		return d.DecodeRows(r.Cursor, columns)
	case ProtocolInline:
		return inlineRows(r.Rows), nil
	default:
		return nil, fmt.Errorf("%w: reply has %s", ErrProtocol, r.Protocol)
	}
}

// DecodeSingle turns an identifier resolution reply into rows
func (r *Reply) DecodeSingle(d *cursor.Decoder) ([]cursor.Row, error) {
	if err := checkColumns(r.ColumnCount(1), 1); err != nil {
		return nil, err
	}

	switch r.Protocol {
	case ProtocolCursor:
		return d.DecodeSingle(r.Cursor)
	case ProtocolInline:
		return inlineRows(r.Rows), nil
	default:
		return nil, fmt.Errorf("%w: reply has %s", ErrProtocol, r.Protocol)
	}
}

func inlineRows(table [][]string) []cursor.Row {
	rows := make([]cursor.Row, len(table))
	for i, row := range table {
		rows[i] = cursor.Row(row)
	}
	return rows
}

func checkColumns(got, want int) error {
	if got != want {
		return fmt.Errorf("%w: service advertised %d columns, expected %d", ErrProtocol, got, want)
	}
	return nil
}
