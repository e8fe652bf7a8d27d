// Command rofi-tracker is a rofi script mode that searches the desktop's
// Tracker index.
//
// Without arguments it prints the launcher setup. With arguments it runs a
// full-text search over them. When rofi reports a selection through
// ROFI_INFO it resolves the selected identifier and opens the document.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd(defaultDeps(), os.Stdout, os.Stderr)
	cmd.SetArgs(os.Args[1:])
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
