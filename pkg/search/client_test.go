package search

import (
	"context"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/aleksaelezovic/rofi-tracker/pkg/cursor"
)

type fakeTransport struct {
	protocol Protocol
	reply    *Reply
	err      error
	queries  []string
}

func (f *fakeTransport) Protocol() Protocol {
	return f.protocol
}

func (f *fakeTransport) Query(_ context.Context, sparql string) (*Reply, error) {
	f.queries = append(f.queries, sparql)
	return f.reply, f.err
}

func encodeRows(t *testing.T, rows ...cursor.Row) []byte {
	t.Helper()
	buf, err := cursor.NewEncoder(binary.LittleEndian).EncodeRows(rows, nil)
	if err != nil {
		t.Fatalf("EncodeRows failed: %v", err)
	}
	return buf
}

func TestClient_SearchCursor(t *testing.T) {
	transport := &fakeTransport{
		protocol: ProtocolCursor,
		reply: &Reply{
			Protocol: ProtocolCursor,
			Columns:  []string{"s", "uri", "title", "snippet"},
			Cursor: encodeRows(t,
				cursor.Row{"urn:1", "file:///docs/a.txt", "A", ""},
				cursor.Row{"urn:2", "no scheme here", "B", ""},
				cursor.Row{"urn:3", "file:///docs/c.txt", "", ""},
			),
		},
	}

	client := NewClient(transport, cursor.NewDecoder(binary.LittleEndian), 5, nil)
	results, err := client.Search(context.Background(), `it's "quoted"`)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != "urn:1" || results[1].ID != "urn:3" {
		t.Errorf("Expected urn:1 and urn:3, got %+v", results)
	}

	if len(transport.queries) != 1 {
		t.Fatalf("Expected 1 query, got %d", len(transport.queries))
	}
	q := transport.queries[0]
	if !strings.Contains(q, `fts:match "it\'s \"quoted\""`) {
		t.Errorf("Query text not escaped: %s", q)
	}
	if !strings.HasSuffix(q, "LIMIT 5") {
		t.Errorf("Expected limit 5 in query: %s", q)
	}
}

func TestClient_SearchColumnMismatch(t *testing.T) {
	transport := &fakeTransport{
		protocol: ProtocolCursor,
		reply: &Reply{
			Protocol: ProtocolCursor,
			Columns:  []string{"s", "uri", "title"},
			// Never inspected: the advertisement is checked first.
			Cursor: []byte{0xde, 0xad},
		},
	}

	_, err := NewClient(transport, nil, 0, nil).Search(context.Background(), "x")
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol, got %v", err)
	}
}

func TestClient_SearchMalformedCursor(t *testing.T) {
	buf := encodeRows(t, cursor.Row{"urn:1", "file:///a", "", ""})
	transport := &fakeTransport{
		protocol: ProtocolCursor,
		reply: &Reply{
			Protocol: ProtocolCursor,
			Columns:  []string{"s", "uri", "title", "snippet"},
			Cursor:   buf[:len(buf)-1],
		},
	}

	_, err := NewClient(transport, cursor.NewDecoder(binary.LittleEndian), 0, nil).Search(context.Background(), "x")
	if !errors.Is(err, cursor.ErrFormat) {
		t.Errorf("Expected ErrFormat, got %v", err)
	}
}

func TestClient_SearchInline(t *testing.T) {
	transport := &fakeTransport{
		protocol: ProtocolInline,
		reply: &Reply{
			Protocol: ProtocolInline,
			Rows: [][]string{
				{"urn:1", "file:///docs/a.txt", "A", ""},
			},
		},
	}

	results, err := NewClient(transport, nil, 0, nil).Search(context.Background(), "a")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Locator.String() != "file:///docs/a.txt" {
		t.Errorf("Unexpected results: %+v", results)
	}
	if !strings.Contains(transport.queries[0], "nie:url(?s)") {
		t.Errorf("Expected inline query form, got %s", transport.queries[0])
	}
}

func TestClient_SearchInlineEmpty(t *testing.T) {
	transport := &fakeTransport{
		protocol: ProtocolInline,
		reply:    &Reply{Protocol: ProtocolInline},
	}

	results, err := NewClient(transport, nil, 0, nil).Search(context.Background(), "a")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results, got %d", len(results))
	}
}

func TestClient_SearchTransportError(t *testing.T) {
	boom := errors.New("bus unavailable")
	transport := &fakeTransport{protocol: ProtocolCursor, err: boom}

	if _, err := NewClient(transport, nil, 0, nil).Search(context.Background(), "a"); !errors.Is(err, boom) {
		t.Errorf("Expected transport error, got %v", err)
	}
}

func TestClient_Resolve(t *testing.T) {
	enc := cursor.NewEncoder(binary.LittleEndian)
	transport := &fakeTransport{
		protocol: ProtocolCursor,
		reply: &Reply{
			Protocol: ProtocolCursor,
			Columns:  []string{"url"},
			Cursor:   append(enc.EncodeSingle("file:///a/b.txt", cursor.ValueTypeString), 0),
		},
	}

	locator, err := NewClient(transport, cursor.NewDecoder(binary.LittleEndian), 0, nil).Resolve(context.Background(), `urn:"x"`)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if locator != "file:///a/b.txt" {
		t.Errorf("Expected file:///a/b.txt, got %s", locator)
	}
	if !strings.Contains(transport.queries[0], `"urn:\"x\"" nie:url ?url`) {
		t.Errorf("Identifier not escaped: %s", transport.queries[0])
	}
}

func TestClient_ResolveNotFound(t *testing.T) {
	tests := []struct {
		name  string
		reply *Reply
	}{
		{"cursor", &Reply{Protocol: ProtocolCursor, Columns: []string{"url"}}},
		{"inline", &Reply{Protocol: ProtocolInline}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &fakeTransport{protocol: tt.reply.Protocol, reply: tt.reply}
			_, err := NewClient(transport, nil, 0, nil).Resolve(context.Background(), "urn:missing")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestClient_ResolveColumnMismatch(t *testing.T) {
	transport := &fakeTransport{
		protocol: ProtocolCursor,
		reply:    &Reply{Protocol: ProtocolCursor, Columns: []string{"url", "title"}},
	}

	_, err := NewClient(transport, nil, 0, nil).Resolve(context.Background(), "urn:x")
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected ErrProtocol, got %v", err)
	}
}
