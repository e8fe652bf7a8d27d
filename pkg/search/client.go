package search

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aleksaelezovic/rofi-tracker/pkg/cursor"
)

// Client runs searches and identifier lookups against a transport
type Client struct {
	transport Transport
	decoder   *cursor.Decoder
	limit     int
	logger    *slog.Logger
}

// NewClient creates a client. A nil decoder reads frames in host byte order
// and a nil logger discards output.
func NewClient(transport Transport, decoder *cursor.Decoder, limit int, logger *slog.Logger) *Client {
	if decoder == nil {
		decoder = cursor.DefaultDecoder()
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		transport: transport,
		decoder:   decoder,
		limit:     limit,
		logger:    logger,
	}
}

// Search runs a full-text query and returns the matching documents in the
// order the service ranked them.
func (c *Client) Search(ctx context.Context, text string) ([]Result, error) {
	protocol := c.transport.Protocol()
	reply, err := c.transport.Query(ctx, SearchQuery(protocol, text, c.limit))
	if err != nil {
		return nil, err
	}

	rows, err := reply.DecodeRows(c.decoder, SearchColumns)
	if err != nil {
		return nil, fmt.Errorf("decoding %s reply: %w", reply.Protocol, err)
	}

	results, err := BuildResults(reply.ColumnCount(SearchColumns), rows)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("search complete",
		"protocol", reply.Protocol.String(),
		"rows", len(rows),
		"results", len(results),
	)
	if dropped := len(rows) - len(results); dropped > 0 {
		c.logger.Debug("dropped rows with invalid locators", "count", dropped)
	}
	return results, nil
}

// Resolve maps a result identifier back to its locator
func (c *Client) Resolve(ctx context.Context, id string) (string, error) {
	protocol := c.transport.Protocol()
	reply, err := c.transport.Query(ctx, ResolveQuery(protocol, id))
	if err != nil {
		return "", err
	}

	rows, err := reply.DecodeSingle(c.decoder)
	if err != nil {
		return "", fmt.Errorf("decoding %s reply: %w", reply.Protocol, err)
	}

	locator, err := ResolveLocator(reply.ColumnCount(ResolveColumns), rows)
	if err != nil {
		return "", err
	}

	c.logger.Debug("resolved identifier", "id", id, "locator", locator)
	return locator, nil
}
