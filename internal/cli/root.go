// Package cli wires the dzarchive command tree: unpack, pack, and
// inspect, each a thin adapter between cobra flags and the
// internal/pipeline engine. The package never touches archive bytes
// itself; it only resolves local_file ports and an observer, then calls
// into internal/pipeline.
package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	jsonLog bool
	quiet   bool
	workers int
)

var rootCmd = &cobra.Command{
	Use:           "dzarchive",
	Short:         "Pack and unpack legacy DZ resource archives",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json", false, "emit process-level logs as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")

	rootCmd.AddCommand(unpackCmd)
	rootCmd.AddCommand(packCmd)
	rootCmd.AddCommand(inspectCmd)
}

// Execute runs the dzarchive command tree and returns whatever error
// the selected RunE produced, typed per internal/dzerr so main.go can
// map it to an exit code.
func Execute() error {
	return rootCmd.Execute()
}

// runContext returns a context cancelled on SIGINT (os.Interrupt), so an
// interrupted unpack/pack surfaces dzerr.ErrCancelled (and main.go maps
// it to exit 130) instead of leaving a partially written archive with no
// typed signal of why.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// logger returns the process-level structured logger for startup and
// flag-parsing diagnostics that fall outside an in-flight pipeline
// operation — in-flight progress always goes through internal/progress
// instead.
func logger() *slog.Logger {
	opts := &slog.HandlerOptions{}
	if jsonLog {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
