package cursor

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// Decoder parses the binary cursor stream written by the indexing service.
//
// Each row of a multi-column stream is laid out as
//
//	tag        uint32         equal to the column count
//	types      [n]uint32      one ValueType per column
//	offsets    [n]uint32      offset table, see below
//	data       field0 NUL field1 NUL ... fieldN-1 NUL
//
// The offset table holds cumulative end offsets into the data block, not
// per-field lengths. Field i spans offsets[i] - base bytes where base is the
// end of the previous field plus its NUL terminator.
type Decoder struct {
	// Order is the byte order of every integer in the frame. The service
	// writes in host order, so this is normally binary.NativeEndian.
	Order binary.ByteOrder
}

// NewDecoder creates a decoder for frames written in the given byte order
func NewDecoder(order binary.ByteOrder) *Decoder {
	return &Decoder{Order: order}
}

// DefaultDecoder creates a decoder for frames written by a service on this host
func DefaultDecoder() *Decoder {
	return NewDecoder(binary.NativeEndian)
}

// DecodeRows decodes every row in buf. The buffer must end exactly on a row
// boundary; any malformed row fails the whole decode.
func (d *Decoder) DecodeRows(buf []byte, columns int) ([]Row, error) {
	if columns <= 0 {
		return nil, fmt.Errorf("%w: invalid column count %d", ErrFormat, columns)
	}

	r := &frameReader{buf: buf, order: d.Order}
	var rows []Row
	for !r.done() {
		row, err := d.decodeRow(r, columns)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows), err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (d *Decoder) decodeRow(r *frameReader, columns int) (Row, error) {
	start := r.pos
	tag, err := r.word()
	if err != nil {
		return nil, err
	}
	if int64(tag) != int64(columns) {
		return nil, fmt.Errorf("%w: row tag %d at offset %d, expected %d", ErrFormat, tag, start, columns)
	}

	if err := r.types(columns); err != nil {
		return nil, err
	}

	offsets := make([]uint32, columns)
	for i := range offsets {
		if offsets[i], err = r.word(); err != nil {
			return nil, err
		}
	}

	row := make(Row, 0, columns)
	var base uint32
	for i, end := range offsets {
		if end < base {
			return nil, fmt.Errorf("%w: column %d ends at %d before its start %d", ErrFormat, i, end, base)
		}
		length := end - base

		field, err := r.take(length)
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(field) {
			return nil, fmt.Errorf("column %d: %w", i, ErrEncoding)
		}
		if err := r.nul(); err != nil {
			return nil, fmt.Errorf("column %d: %w", i, err)
		}

		row = append(row, string(field))
		base += length + 1
	}
	return row, nil
}

// DecodeSingle decodes the one-row, one-column frame returned when resolving
// an identifier: tag 1, one type tag, an absolute length and the raw value.
// Unlike DecodeRows no NUL terminator is consumed and trailing bytes are
// ignored. An empty buffer yields no rows.
func (d *Decoder) DecodeSingle(buf []byte) ([]Row, error) {
	if len(buf) == 0 {
		return nil, nil
	}

	r := &frameReader{buf: buf, order: d.Order}
	tag, err := r.word()
	if err != nil {
		return nil, err
	}
	if tag != 1 {
		return nil, fmt.Errorf("%w: single-column frame tag %d", ErrFormat, tag)
	}
	if err := r.types(1); err != nil {
		return nil, err
	}
	length, err := r.word()
	if err != nil {
		return nil, err
	}
	value, err := r.take(length)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(value) {
		return nil, fmt.Errorf("value: %w", ErrEncoding)
	}
	return []Row{{string(value)}}, nil
}

// frameReader walks a cursor buffer, failing with ErrFormat on truncation
type frameReader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func (r *frameReader) done() bool {
	return r.pos >= len(r.buf)
}

func (r *frameReader) word() (uint32, error) {
	if len(r.buf)-r.pos < wordSize {
		return 0, fmt.Errorf("%w: truncated at offset %d", ErrFormat, r.pos)
	}
	v := r.order.Uint32(r.buf[r.pos:])
	r.pos += wordSize
	return v, nil
}

func (r *frameReader) types(columns int) error {
	for i := 0; i < columns; i++ {
		t, err := r.word()
		if err != nil {
			return err
		}
		if !ValueType(t).Known() {
			return fmt.Errorf("%w: column %d has unsupported type %s", ErrFormat, i, ValueType(t))
		}
	}
	return nil
}

func (r *frameReader) take(n uint32) ([]byte, error) {
	if uint64(len(r.buf)-r.pos) < uint64(n) {
		return nil, fmt.Errorf("%w: field of %d bytes truncated at offset %d", ErrFormat, n, r.pos)
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *frameReader) nul() error {
	if r.pos >= len(r.buf) || r.buf[r.pos] != 0 {
		return fmt.Errorf("%w: missing NUL terminator at offset %d", ErrFormat, r.pos)
	}
	r.pos++
	return nil
}
