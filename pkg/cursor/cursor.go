package cursor

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when a cursor frame is malformed: a bad row tag,
	// a truncated buffer or an offset table that runs backwards.
	ErrFormat = errors.New("malformed cursor frame")

	// ErrEncoding is returned when a field is not valid UTF-8.
	ErrEncoding = errors.New("invalid UTF-8 in cursor field")
)

// Row is one fixed-arity row of a query result
type Row []string

// ValueType is the per-column type tag written by the indexing service.
// Every type is serialised as text in the cursor stream, so the tag only
// matters for validation.
type ValueType uint32

const (
	ValueTypeUnbound ValueType = iota
	ValueTypeURI
	ValueTypeString
	ValueTypeInteger
	ValueTypeDouble
	ValueTypeDateTime
	ValueTypeBlankNode
	ValueTypeBoolean
)

// Known reports whether t is a type tag the service is known to emit
func (t ValueType) Known() bool {
	return t <= ValueTypeBoolean
}

func (t ValueType) String() string {
	switch t {
	case ValueTypeUnbound:
		return "unbound"
	case ValueTypeURI:
		return "uri"
	case ValueTypeString:
		return "string"
	case ValueTypeInteger:
		return "integer"
	case ValueTypeDouble:
		return "double"
	case ValueTypeDateTime:
		return "datetime"
	case ValueTypeBlankNode:
		return "blank-node"
	case ValueTypeBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(t))
	}
}

// wordSize is the width of every integer in the frame
const wordSize = 4
