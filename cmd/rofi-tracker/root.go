package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aleksaelezovic/rofi-tracker/internal/app"
	"github.com/aleksaelezovic/rofi-tracker/internal/config"
	"github.com/aleksaelezovic/rofi-tracker/internal/opener"
	"github.com/aleksaelezovic/rofi-tracker/internal/storage"
	"github.com/aleksaelezovic/rofi-tracker/internal/tracker"
	"github.com/aleksaelezovic/rofi-tracker/pkg/cursor"
	"github.com/aleksaelezovic/rofi-tracker/pkg/search"
	"github.com/aleksaelezovic/rofi-tracker/pkg/store"
)

const (
	// infoEnv carries the info field of the entry the user selected
	infoEnv = "ROFI_INFO"

	// retvEnv reports how the entry was selected; 10 is custom key 1
	retvEnv = "ROFI_RETV"
	copyKey = "10"
)

// transport is a connected search transport
type transport interface {
	search.Transport
	Close() error
}

// deps holds the outside world the command talks to
type deps struct {
	connect   func(ctx context.Context, s tracker.Settings, logger *slog.Logger) (transport, error)
	opener    func(command []string) app.Opener
	clipboard func(text string) error
	lookupEnv func(key string) (string, bool)
}

func defaultDeps() deps {
	return deps{
		connect: func(ctx context.Context, s tracker.Settings, logger *slog.Logger) (transport, error) {
			return tracker.Connect(ctx, s, logger)
		},
		opener: func(command []string) app.Opener {
			return opener.New(command...)
		},
		clipboard: clipboard.WriteAll,
		lookupEnv: os.LookupEnv,
	}
}

type options struct {
	configFile string
	protocol   string
	limit      int
	history    bool
	dumpConfig bool
	debug      bool
}

func newRootCmd(d deps, stdout, stderr io.Writer) *cobra.Command {
	var opts options
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "rofi-tracker [query...]",
		Short: "Search the Tracker index from rofi",
		Long: heredoc.Doc(`
			A rofi script mode backed by the Tracker desktop search index.

			Every argument is joined into one full-text query. Selecting a result
			opens the document with the configured opener. With hot_keys enabled,
			custom key 1 copies the document's locator to the clipboard instead.
		`),
		Example: heredoc.Doc(`
			rofi -modi tracker:rofi-tracker -show tracker
			rofi-tracker --debug quarterly report
			rofi-tracker --history
		`),
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), d, v, opts, args, stdout, stderr)
		},
	}

	// rofi passes the query or the selected label verbatim, so nothing it
	// sends is a flag. Under rofi the config comes from its default path.
	if _, ok := d.lookupEnv(retvEnv); ok {
		cmd.DisableFlagParsing = true
	}

	flags := cmd.Flags()
	// Queries may contain words that look like flags after the first one
	flags.SetInterspersed(false)
	flags.StringVar(&opts.configFile, "config", "", "config file (default is $XDG_CONFIG_HOME/rofi-tracker/config.yaml)")
	flags.StringVar(&opts.protocol, "protocol", "", "result protocol: auto, cursor or inline")
	flags.IntVar(&opts.limit, "limit", 0, "maximum number of results per search")
	flags.BoolVar(&opts.history, "history", false, "list recently opened documents")
	flags.BoolVar(&opts.dumpConfig, "dump-config", false, "print the effective configuration and exit")
	flags.BoolVar(&opts.debug, "debug", false, "log debug output to stderr")

	cobra.CheckErr(v.BindPFlag("protocol", flags.Lookup("protocol")))
	cobra.CheckErr(v.BindPFlag("limit", flags.Lookup("limit")))

	return cmd
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func run(ctx context.Context, d deps, v *viper.Viper, opts options, args []string, stdout, stderr io.Writer) error {
	logger := newLogger(stderr, opts.debug)

	cfg, err := config.Load(v, opts.configFile)
	if err != nil {
		return err
	}

	if opts.dumpConfig {
		out, err := cfg.Dump()
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
		_, err = stdout.Write(out)
		return err
	}

	appCfg := app.Config{
		Prompt:             cfg.Prompt,
		HotKeys:            cfg.HotKeys,
		HistorySize:        cfg.History.Size,
		ShowHistoryOnStart: cfg.History.ShowOnStart,
	}

	if opts.history {
		history, closeHistory := openHistory(cfg, logger)
		defer closeHistory()
		return app.New(appCfg, nil, nil, history, stdout, logger).History()
	}

	if len(args) == 0 {
		var history app.History
		if cfg.History.ShowOnStart {
			h, closeHistory := openHistory(cfg, logger)
			defer closeHistory()
			history = h
		}
		return app.New(appCfg, nil, nil, history, stdout, logger).Start()
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	conn, err := d.connect(ctx, cfg.Tracker(), logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	client := search.NewClient(conn, cursor.NewDecoder(cfg.Order()), cfg.Limit, logger)

	if id, ok := d.lookupEnv(infoEnv); ok {
		if retv, _ := d.lookupEnv(retvEnv); cfg.HotKeys && retv == copyKey {
			return app.New(appCfg, client, nil, nil, stdout, logger).Copy(ctx, id, d.clipboard)
		}

		history, closeHistory := openHistory(cfg, logger)
		defer closeHistory()
		a := app.New(appCfg, client, d.opener(cfg.Opener), history, stdout, logger)
		return a.Open(ctx, id)
	}

	a := app.New(appCfg, client, nil, nil, stdout, logger)
	return a.Search(ctx, strings.Join(args, " "))
}

// openHistory opens the history database. History is optional: when it is
// disabled or cannot be opened the result is nil and the launcher carries on.
func openHistory(cfg *config.Config, logger *slog.Logger) (app.History, func()) {
	if !cfg.History.Enabled {
		return nil, func() {}
	}

	s, err := storage.Open(cfg.History.Backend, cfg.History.Path)
	if err != nil {
		logger.Warn("history unavailable", "path", cfg.History.Path, "error", err)
		return nil, func() {}
	}

	h := store.NewHistory(s)
	return h, func() {
		if err := h.Close(); err != nil {
			logger.Warn("failed to close history", "error", err)
		}
	}
}
