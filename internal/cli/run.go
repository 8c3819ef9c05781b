// Package cli implements the plot command's command-line surface: flag
// parsing, signal-driven graceful shutdown, and progress reporting around
// internal/plotter.CreatePlot.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"
)

// Run is the main entry point. Returns the process exit code.
// sigCh can be nil if signal handling is not needed (e.g., in tests).
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	runCreate, earlyExit, ok := parseCreateFlags(out, errOut, args)
	if !ok {
		return earlyExit
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- runCreate(ctx, out, errOut)
	}()

	select {
	case exitCode := <-done:
		return exitCode
	case <-sigCh:
		fprintln(errOut, "shutting down with 5s timeout...")
		cancel()
	}

	select {
	case <-done:
		fprintln(errOut, "graceful shutdown ok (130)")

		return 130
	case <-time.After(5 * time.Second):
		fprintln(errOut, "graceful shutdown timed out, forced exit (130)")

		return 130
	case <-sigCh:
		fprintln(errOut, "graceful shutdown interrupted, forced exit (130)")

		return 130
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func fprintf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}
