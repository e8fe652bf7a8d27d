package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aleksaelezovic/rofi-tracker/pkg/rofi"
	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
	"github.com/aleksaelezovic/rofi-tracker/pkg/store"
)

// Searcher runs queries against the indexing service
type Searcher interface {
	Search(ctx context.Context, text string) ([]search.Result, error)
	Resolve(ctx context.Context, id string) (string, error)
}

// Opener hands a locator to the desktop
type Opener interface {
	Open(locator string) error
}

// History remembers opened documents
type History interface {
	Record(id, locator string, at time.Time) error
	Recent(limit int) ([]store.Entry, error)
}

// Config holds the launcher-facing settings
type Config struct {
	Prompt             string
	HotKeys            bool
	HistorySize        int
	ShowHistoryOnStart bool
}

// App drives one launcher invocation. Dependencies a mode does not use
// may be nil.
type App struct {
	cfg      Config
	searcher Searcher
	opener   Opener
	history  History
	out      *rofi.Writer
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an app writing records to out
func New(cfg Config, searcher Searcher, opener Opener, history History, out io.Writer, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &App{
		cfg:      cfg,
		searcher: searcher,
		opener:   opener,
		history:  history,
		out:      rofi.NewWriter(out),
		logger:   logger,
		now:      time.Now,
	}
}

// Start handles the initial invocation, before the user has typed anything
func (a *App) Start() error {
	if a.cfg.Prompt != "" {
		if err := a.out.Write(rofi.ModeOption("prompt", a.cfg.Prompt)); err != nil {
			return err
		}
	}
	if a.cfg.HotKeys {
		if err := a.out.Write(rofi.ModeOption("use-hot-keys", "true")); err != nil {
			return err
		}
	}
	if a.cfg.ShowHistoryOnStart && a.history != nil {
		return a.writeHistory(false)
	}
	return nil
}

// Search runs query and writes one record per match
func (a *App) Search(ctx context.Context, query string) error {
	results, err := a.searcher.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("failed search for %q: %w", query, err)
	}

	a.logger.Debug("writing results", "query", query, "count", len(results))
	return a.out.WriteResults(results)
}

// Open resolves a selected identifier and opens its document
func (a *App) Open(ctx context.Context, id string) error {
	locator, err := a.searcher.Resolve(ctx, id)
	if err != nil {
		return fmt.Errorf("can't lookup identifier '%s': %w", id, err)
	}

	if a.history != nil {
		if err := a.history.Record(id, locator, a.now()); err != nil {
			a.logger.Warn("failed to record history", "id", id, "error", err)
		}
	}

	if err := a.opener.Open(locator); err != nil {
		return fmt.Errorf("can't open file: %w", err)
	}
	return nil
}

// Copy resolves a selected identifier and passes its locator to write,
// normally the clipboard
func (a *App) Copy(ctx context.Context, id string, write func(string) error) error {
	locator, err := a.searcher.Resolve(ctx, id)
	if err != nil {
		return fmt.Errorf("can't lookup identifier '%s': %w", id, err)
	}

	if err := write(locator); err != nil {
		return fmt.Errorf("can't copy locator: %w", err)
	}
	a.logger.Debug("copied locator", "id", id, "locator", locator)
	return nil
}

// History writes the recently opened documents
func (a *App) History() error {
	if a.history == nil {
		return a.out.Write(rofi.FormatEntry("history disabled", rofi.Field{Name: rofi.FieldNonSelectable, Value: "true"}))
	}
	return a.writeHistory(true)
}

func (a *App) writeHistory(placeholder bool) error {
	entries, err := a.history.Recent(a.cfg.HistorySize)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	if len(entries) == 0 && placeholder {
		return a.out.Write(rofi.FormatEntry("no history", rofi.Field{Name: rofi.FieldNonSelectable, Value: "true"}))
	}

	for _, e := range entries {
		label := e.Locator
		if r, err := search.NewResult(e.ID, e.Locator, "", ""); err == nil {
			label = r.Description()
		}
		if err := a.out.Write(rofi.FormatEntry(label, rofi.Field{Name: rofi.FieldInfo, Value: e.ID})); err != nil {
			return err
		}
	}
	return nil
}
