package search

import (
	"errors"
	"fmt"

	"github.com/aleksaelezovic/rofi-tracker/pkg/cursor"
)

const (
	// SearchColumns is the arity of a search row: identifier, locator,
	// title and snippet.
	SearchColumns = 4

	// ResolveColumns is the arity of an identifier resolution row
	ResolveColumns = 1
)

// BuildResults converts search rows into results, preserving their order.
// Rows whose locator does not parse are omitted; any row of the wrong width
// fails the whole query.
func BuildResults(columns int, rows []cursor.Row) ([]Result, error) {
	if err := checkColumns(columns, SearchColumns); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(rows))
	for i, row := range rows {
		if len(row) != SearchColumns {
			return nil, fmt.Errorf("%w: row %d has %d columns, expected %d", ErrProtocol, i, len(row), SearchColumns)
		}

		result, err := NewResult(row[0], row[1], row[2], row[3])
		if errors.Is(err, ErrInvalidLocator) {
			continue
		}
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ResolveLocator extracts the locator from an identifier resolution reply
func ResolveLocator(columns int, rows []cursor.Row) (string, error) {
	if err := checkColumns(columns, ResolveColumns); err != nil {
		return "", err
	}

	switch {
	case len(rows) == 0:
		return "", ErrNotFound
	case len(rows) > 1:
		return "", fmt.Errorf("%w: %d rows, expected 1", ErrProtocol, len(rows))
	case len(rows[0]) != ResolveColumns:
		return "", fmt.Errorf("%w: row has %d columns, expected %d", ErrProtocol, len(rows[0]), ResolveColumns)
	}
	return rows[0][0], nil
}
