package rofi

import (
	"fmt"
	"io"

	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
)

// Writer writes records to rofi
type Writer struct {
	w io.Writer
}

// NewWriter creates a writer on w, normally standard output
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write writes one pre-encoded record
func (w *Writer) Write(record []byte) error {
	if _, err := w.w.Write(record); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// WriteResults writes one record per result, or the no-results line when
// there are none.
func (w *Writer) WriteResults(results []search.Result) error {
	if len(results) == 0 {
		return w.Write(NoResults())
	}
	for _, r := range results {
		if err := w.Write(FormatResult(r)); err != nil {
			return err
		}
	}
	return nil
}
