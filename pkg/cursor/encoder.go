package cursor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encoder writes cursor frames in the layout read by Decoder
type Encoder struct {
	Order binary.ByteOrder
}

// NewEncoder creates an encoder writing integers in the given byte order
func NewEncoder(order binary.ByteOrder) *Encoder {
	return &Encoder{Order: order}
}

// EncodeRows encodes rows as a multi-column stream. types holds one tag per
// column; when nil every column is tagged as a string.
func (e *Encoder) EncodeRows(rows []Row, types []ValueType) ([]byte, error) {
	var buf []byte
	for n, row := range rows {
		columns := len(row)
		if columns == 0 {
			return nil, fmt.Errorf("row %d has no columns", n)
		}
		if types != nil && len(types) != columns {
			return nil, fmt.Errorf("row %d has %d columns but %d types", n, columns, len(types))
		}

		buf = e.appendWord(buf, columns)
		for i := 0; i < columns; i++ {
			t := ValueTypeString
			if types != nil {
				t = types[i]
			}
			buf = e.appendUint32(buf, uint32(t))
		}

		// Offset table: each entry is the end of its field counted from the
		// start of the data block, including earlier NUL terminators.
		end := 0
		for i, field := range row {
			if i > 0 {
				end++
			}
			end += len(field)
			buf = e.appendWord(buf, end)
		}

		for _, field := range row {
			buf = append(buf, field...)
			buf = append(buf, 0)
		}
	}
	return buf, nil
}

// EncodeSingle encodes the single-column identifier resolution frame
func (e *Encoder) EncodeSingle(value string, t ValueType) []byte {
	buf := e.appendWord(nil, 1)
	buf = e.appendUint32(buf, uint32(t))
	buf = e.appendWord(buf, len(value))
	return append(buf, value...)
}

func (e *Encoder) appendWord(buf []byte, v int) []byte {
	if v < 0 || uint64(v) > math.MaxUint32 {
		panic(fmt.Sprintf("cursor: word %d out of range", v))
	}
	return e.appendUint32(buf, uint32(v)) // #nosec G115 - range checked above
}

func (e *Encoder) appendUint32(buf []byte, v uint32) []byte {
	var w [wordSize]byte
	e.Order.PutUint32(w[:], v)
	return append(buf, w[:]...)
}
