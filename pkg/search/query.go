package search

import (
	"fmt"
	"strings"
)

// DefaultLimit caps the number of results a search asks for
const DefaultLimit = 15

const searchQueryCursor = `SELECT DISTINCT ?s ?uri ?title fts:snippet(?s, "", "")
WHERE {
	?s fts:match "%s" .
	?s nie:isStoredAs/nie:dataSource/tracker:available
		| nie:dataSource/tracker:available true
	.
	?s nie:url ?uri .
	OPTIONAL { ?s nie:title ?title . }
}
OFFSET 0 LIMIT %d`

const searchQueryInline = `SELECT DISTINCT ?s nie:url(?s) nie:title(?s) fts:snippet(?s, "", "")
WHERE {
	?s fts:match "%s" .
	?s tracker:available true .
}
OFFSET 0 LIMIT %d`

const resolveQueryCursor = `SELECT ?url
WHERE {
	"%s" nie:url ?url
}
LIMIT 1`

const resolveQueryInline = `SELECT ?url
WHERE {
	?s nie:url ?url .
	FILTER (str(?s) = "%s")
}
LIMIT 1`

// SearchQuery renders the full-text search query for a protocol
func SearchQuery(p Protocol, text string, limit int) string {
	if limit <= 0 {
		limit = DefaultLimit
	}
	tmpl := searchQueryCursor
	if p == ProtocolInline {
		tmpl = searchQueryInline
	}
	return fmt.Sprintf(tmpl, EscapeLiteral(text), limit)
}

// ResolveQuery renders the query mapping an identifier back to its locator
func ResolveQuery(p Protocol, id string) string {
	tmpl := resolveQueryCursor
	if p == ProtocolInline {
		tmpl = resolveQueryInline
	}
	return fmt.Sprintf(tmpl, EscapeLiteral(id))
}

// EscapeLiteral escapes s for use inside a quoted SPARQL string literal
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "'", "\\'")
	return s
}
