package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
	"github.com/godbus/dbus/v5"
	"golang.org/x/sys/unix"
)

// DefaultTimeout bounds a single round trip to the service
const DefaultTimeout = 2 * time.Second

// Service locates a SPARQL endpoint on the bus
type Service struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Path      string `mapstructure:"path" yaml:"path"`
	Interface string `mapstructure:"interface" yaml:"interface"`
}

var (
	// Tracker3 is the file miner endpoint of Tracker 3, which streams
	// results as a binary cursor.
	Tracker3 = Service{
		Name:      "org.freedesktop.Tracker3.Miner.Files",
		Path:      "/org/freedesktop/Tracker3/Endpoint",
		Interface: "org.freedesktop.Tracker3.Endpoint",
	}

	// Tracker2 is the resources endpoint of Tracker 2, which replies inline
	Tracker2 = Service{
		Name:      "org.freedesktop.Tracker1",
		Path:      "/org/freedesktop/Tracker1/Resources",
		Interface: "org.freedesktop.Tracker1.Resources",
	}
)

// caller is the part of dbus.BusObject the endpoints use
type caller interface {
	CallWithContext(ctx context.Context, method string, flags dbus.Flags, args ...interface{}) *dbus.Call
}

// CursorEndpoint queries a service that writes results to a pipe passed
// with the call and replies with the column names.
type CursorEndpoint struct {
	obj     caller
	method  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewCursorEndpoint creates a cursor endpoint calling svc through obj
func NewCursorEndpoint(obj caller, svc Service, timeout time.Duration, logger *slog.Logger) *CursorEndpoint {
	return &CursorEndpoint{
		obj:     obj,
		method:  svc.Interface + ".Query",
		timeout: orDefault(timeout),
		logger:  orDiscard(logger),
	}
}

// Protocol implements search.Transport
func (e *CursorEndpoint) Protocol() search.Protocol {
	return search.ProtocolCursor
}

// Query implements search.Transport
func (e *CursorEndpoint) Query(ctx context.Context, sparql string) (*search.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("failed to create cursor pipe: %w", err)
	}
	// Only our end is non-blocking so that reads honour the deadline.
	if err := unix.SetNonblock(fds[0], true); err != nil {
		unix.Close(fds[0])
		unix.Close(fds[1])
		return nil, fmt.Errorf("failed to configure cursor pipe: %w", err)
	}

	reader := os.NewFile(uintptr(fds[0]), "tracker-cursor") // #nosec G115 - fd from pipe2 is non-negative
	defer reader.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := reader.SetReadDeadline(deadline); err != nil {
			e.logger.Debug("cursor pipe has no deadline support", "error", err)
		}
	}

	type readResult struct {
		buf []byte
		err error
	}
	done := make(chan readResult, 1)
	go func() {
		buf, err := io.ReadAll(reader)
		done <- readResult{buf: buf, err: err}
	}()

	args := map[string]dbus.Variant{}
	call := e.obj.CallWithContext(ctx, e.method, 0, sparql, dbus.UnixFD(fds[1]), args) // #nosec G115 - fd fits in int32
	// The service holds its own copy; ours must go for the reader to see EOF.
	unix.Close(fds[1])

	var columns []string
	if err := call.Store(&columns); err != nil {
		return nil, fmt.Errorf("%s: %w", e.method, err)
	}

	var res readResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, fmt.Errorf("reading cursor: %w", ctx.Err())
	}
	if res.err != nil {
		if errors.Is(res.err, os.ErrDeadlineExceeded) {
			return nil, fmt.Errorf("reading cursor: %w", context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("reading cursor: %w", res.err)
	}

	e.logger.Debug("cursor reply", "columns", columns, "bytes", len(res.buf))
	return &search.Reply{
		Protocol: search.ProtocolCursor,
		Columns:  columns,
		Cursor:   res.buf,
	}, nil
}

// InlineEndpoint queries a service that returns the result table in the
// reply message.
type InlineEndpoint struct {
	obj     caller
	method  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewInlineEndpoint creates an inline endpoint calling svc through obj
func NewInlineEndpoint(obj caller, svc Service, timeout time.Duration, logger *slog.Logger) *InlineEndpoint {
	return &InlineEndpoint{
		obj:     obj,
		method:  svc.Interface + ".SparqlQuery",
		timeout: orDefault(timeout),
		logger:  orDiscard(logger),
	}
}

// Protocol implements search.Transport
func (e *InlineEndpoint) Protocol() search.Protocol {
	return search.ProtocolInline
}

// Query implements search.Transport
func (e *InlineEndpoint) Query(ctx context.Context, sparql string) (*search.Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var rows [][]string
	if err := e.obj.CallWithContext(ctx, e.method, 0, sparql).Store(&rows); err != nil {
		return nil, fmt.Errorf("%s: %w", e.method, err)
	}

	e.logger.Debug("inline reply", "rows", len(rows))
	return &search.Reply{
		Protocol: search.ProtocolInline,
		Rows:     rows,
	}, nil
}

func orDefault(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	return timeout
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
