package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
	"github.com/godbus/dbus/v5"
)

// ProtocolAuto picks the protocol from the services present on the bus
const ProtocolAuto = "auto"

// ErrNoService is returned when auto-detection finds no indexing service
var ErrNoService = errors.New("no indexing service on the session bus")

// Settings configures the connection to the indexing service
type Settings struct {
	// Protocol is "auto", or any name accepted by search.ParseProtocol
	Protocol string
	Timeout  time.Duration
	Cursor   Service
	Inline   Service
}

// DefaultSettings returns settings for the stock Tracker services
func DefaultSettings() Settings {
	return Settings{
		Protocol: ProtocolAuto,
		Timeout:  DefaultTimeout,
		Cursor:   Tracker3,
		Inline:   Tracker2,
	}
}

// Conn is a transport bound to a session bus connection
type Conn struct {
	search.Transport
	bus *dbus.Conn
}

// Close closes the bus connection
func (c *Conn) Close() error {
	return c.bus.Close()
}

// Connect opens the session bus and selects the endpoint once, so every
// query on the connection uses the same protocol.
func Connect(ctx context.Context, s Settings, logger *slog.Logger) (*Conn, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	bus, err := dbus.ConnectSessionBus(dbus.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	protocol, err := selectProtocol(ctx, bus.BusObject(), s)
	if err != nil {
		bus.Close()
		return nil, err
	}
	logger.Debug("selected protocol", "protocol", protocol.String())

	transport := newTransport(protocol, func(svc Service) caller {
		return bus.Object(svc.Name, dbus.ObjectPath(svc.Path))
	}, s, logger)
	return &Conn{Transport: transport, bus: bus}, nil
}

func newTransport(p search.Protocol, object func(Service) caller, s Settings, logger *slog.Logger) search.Transport {
	if p == search.ProtocolInline {
		return NewInlineEndpoint(object(s.Inline), s.Inline, s.Timeout, logger)
	}
	return NewCursorEndpoint(object(s.Cursor), s.Cursor, s.Timeout, logger)
}

func selectProtocol(ctx context.Context, bus caller, s Settings) (search.Protocol, error) {
	if !strings.EqualFold(strings.TrimSpace(s.Protocol), ProtocolAuto) && s.Protocol != "" {
		return search.ParseProtocol(s.Protocol)
	}
	return detectProtocol(ctx, bus, s)
}

// detectProtocol prefers the cursor service and falls back to the inline
// one. Services that are not running but can be activated count as present.
func detectProtocol(ctx context.Context, bus caller, s Settings) (search.Protocol, error) {
	ctx, cancel := context.WithTimeout(ctx, orDefault(s.Timeout))
	defer cancel()

	var names []string
	for _, method := range []string{"org.freedesktop.DBus.ListNames", "org.freedesktop.DBus.ListActivatableNames"} {
		var list []string
		if err := bus.CallWithContext(ctx, method, 0).Store(&list); err != nil {
			return 0, fmt.Errorf("%s: %w", method, err)
		}
		names = append(names, list...)
	}

	switch {
	case slices.Contains(names, s.Cursor.Name):
		return search.ProtocolCursor, nil
	case slices.Contains(names, s.Inline.Name):
		return search.ProtocolInline, nil
	default:
		return 0, fmt.Errorf("%w: neither %s nor %s", ErrNoService, s.Cursor.Name, s.Inline.Name)
	}
}
