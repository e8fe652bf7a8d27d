package search

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"
)

var (
	// ErrProtocol is returned when the shape of a reply disagrees with the
	// column count the service advertised or the query asked for.
	ErrProtocol = errors.New("unexpected result shape")

	// ErrNotFound is returned when an identifier resolves to no rows
	ErrNotFound = errors.New("no results")

	// ErrInvalidLocator is returned by NewResult when the locator is not an
	// absolute URI. BuildResults drops such rows instead of failing.
	ErrInvalidLocator = errors.New("invalid locator")
)

// Result is one document matched by a search
type Result struct {
	ID      string
	Locator *url.URL
	Title   string
	Snippet string
}

// NewResult builds a result from the columns of a search row
func NewResult(id, locator, title, snippet string) (Result, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidLocator, err)
	}
	if u.Scheme == "" {
		return Result{}, fmt.Errorf("%w: %q has no scheme", ErrInvalidLocator, locator)
	}

	return Result{
		ID:      id,
		Locator: u,
		Title:   title,
		Snippet: snippet,
	}, nil
}

// Description renders the human-readable label of a result:
//
//	<file name>: <title> [<parent path>]
//
// The file name prefix and parent suffix are present whenever the locator
// has a hierarchical path; the title is omitted when empty.
func (r Result) Description() string {
	file, parent, ok := splitPath(r.Locator)

	var b strings.Builder
	if ok {
		b.WriteString(file)
		b.WriteString(": ")
	}
	b.WriteString(r.Title)
	if ok {
		b.WriteString(" [")
		b.WriteString(parent)
		b.WriteString("]")
	}
	return b.String()
}

// specialSchemes have their empty paths normalised to "/"
var specialSchemes = map[string]bool{
	"file":  true,
	"ftp":   true,
	"http":  true,
	"https": true,
	"ws":    true,
	"wss":   true,
}

// splitPath returns the decoded last path segment and the decoded remaining
// segments joined by "/". ok is false for locators without a hierarchical
// path, such as mailto: URIs.
func splitPath(u *url.URL) (file, parent string, ok bool) {
	if u == nil || u.Opaque != "" {
		return "", "", false
	}

	p := u.EscapedPath()
	if p == "" && specialSchemes[strings.ToLower(u.Scheme)] {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "", "", false
	}

	segments := strings.Split(p[1:], "/")
	for i, s := range segments {
		segments[i] = percentDecode(s)
	}
	last := len(segments) - 1
	return segments[last], strings.Join(segments[:last], "/"), true
}

// percentDecode decodes %XX escapes, leaving malformed escapes untouched and
// replacing invalid UTF-8 with U+FFFD.
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return strings.ToValidUTF8(s, string(utf8.RuneError))
	}

	buf := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			buf = append(buf, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
			continue
		}
		buf = append(buf, s[i])
	}
	return strings.ToValidUTF8(string(buf), string(utf8.RuneError))
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
