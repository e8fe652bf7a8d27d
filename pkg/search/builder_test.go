package search

import (
	"errors"
	"testing"

	"github.com/aleksaelezovic/rofi-tracker/pkg/cursor"
)

func TestBuildResults_DropsInvalidLocators(t *testing.T) {
	rows := []cursor.Row{
		{"id1", "not a uri", "T", ""},
		{"id2", "scheme://host/a/b.txt", "Title", ""},
	}

	results, err := BuildResults(4, rows)
	if err != nil {
		t.Fatalf("BuildResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}
	if results[0].ID != "id2" {
		t.Errorf("Expected id2, got %s", results[0].ID)
	}
	if got := results[0].Description(); got != "b.txt: Title [a]" {
		t.Errorf("Expected %q, got %q", "b.txt: Title [a]", got)
	}
}

func TestBuildResults_PreservesOrder(t *testing.T) {
	rows := []cursor.Row{
		{"c", "file:///c", "", ""},
		{"a", "file:///a", "", ""},
		{"b", "file:///b", "", "snippet"},
	}

	results, err := BuildResults(4, rows)
	if err != nil {
		t.Fatalf("BuildResults failed: %v", err)
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	if len(ids) != 3 || ids[0] != "c" || ids[1] != "a" || ids[2] != "b" {
		t.Errorf("Expected [c a b], got %v", ids)
	}
	if results[2].Snippet != "snippet" {
		t.Errorf("Expected snippet to be kept, got %q", results[2].Snippet)
	}
}

func TestBuildResults_ColumnMismatch(t *testing.T) {
	if _, err := BuildResults(3, nil); !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol, got %v", err)
	}

	rows := []cursor.Row{
		{"id", "file:///a", "", ""},
		{"id", "file:///a", ""},
	}
	if _, err := BuildResults(4, rows); !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol for short row, got %v", err)
	}
}

func TestResolveLocator(t *testing.T) {
	tests := []struct {
		name    string
		columns int
		rows    []cursor.Row
		want    string
		wantErr error
	}{
		{
			name:    "single row",
			columns: 1,
			rows:    []cursor.Row{{"file:///a/b"}},
			want:    "file:///a/b",
		},
		{
			name:    "no rows",
			columns: 1,
			wantErr: ErrNotFound,
		},
		{
			name:    "too many rows",
			columns: 1,
			rows:    []cursor.Row{{"file:///a"}, {"file:///b"}},
			wantErr: ErrProtocol,
		},
		{
			name:    "too many columns advertised",
			columns: 2,
			rows:    []cursor.Row{{"file:///a"}},
			wantErr: ErrProtocol,
		},
		{
			name:    "wide row",
			columns: 1,
			rows:    []cursor.Row{{"file:///a", "extra"}},
			wantErr: ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveLocator(tt.columns, tt.rows)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveLocator failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}
