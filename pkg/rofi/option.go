package rofi

import (
	"strings"

	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
)

// rofi script mode record format
// https://davatorium.github.io/rofi/current/rofi-script.5/
//
//	[value] NUL name US value (US name US value)* LF
const (
	valueSeparator = '\x00'
	fieldSeparator = '\x1f'
	lineTerminator = '\n'
)

// Field is one name/value metadata pair of a record
type Field struct {
	Name  string
	Value string
}

// Field names understood by rofi
const (
	FieldInfo          = "info"
	FieldNonSelectable = "nonselectable"
	FieldIcon          = "icon"
	FieldMeta          = "meta"
)

var escaper = strings.NewReplacer(
	"\n", " ",
	"\x00", "",
	"\x1f", "",
)

// Escape makes s safe to place in a record: newlines become spaces and the
// record's delimiter bytes are removed.
func Escape(s string) string {
	if !strings.ContainsAny(s, "\n\x00\x1f") {
		return s
	}
	return escaper.Replace(s)
}

// FormatOption encodes one record. A nil value produces a mode option line,
// which sets rofi state rather than adding an entry.
func FormatOption(value *string, fields ...Field) []byte {
	var b strings.Builder
	if value != nil {
		b.WriteString(Escape(*value))
	}
	b.WriteByte(valueSeparator)
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(fieldSeparator)
		}
		b.WriteString(Escape(f.Name))
		b.WriteByte(fieldSeparator)
		b.WriteString(Escape(f.Value))
	}
	b.WriteByte(lineTerminator)
	return []byte(b.String())
}

// FormatEntry encodes a selectable entry with a label
func FormatEntry(label string, fields ...Field) []byte {
	return FormatOption(&label, fields...)
}

// FormatResult encodes a search result, carrying its identifier in the info
// field so a later selection can resolve it.
func FormatResult(r search.Result) []byte {
	return FormatEntry(r.Description(), Field{Name: FieldInfo, Value: r.ID})
}

// NoResults is the line shown for a query without matches
func NoResults() []byte {
	return FormatEntry("no results", Field{Name: FieldNonSelectable, Value: "true"})
}

// ModeOption encodes a mode option such as the prompt
func ModeOption(name, value string) []byte {
	return FormatOption(nil, Field{Name: name, Value: value})
}
