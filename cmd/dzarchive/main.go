package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sargunv/dzarchive/internal/cli"
	"github.com/sargunv/dzarchive/internal/dzerr"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCode(err)
	}
	return 0
}

// exitCode maps a typed error from internal/dzerr to a process exit
// status: 2 for a missing input file, a rejected path, or a missing
// split volume, 3 for a structurally corrupt archive, 130 for a
// cancelled operation (128 + SIGINT, matching shell convention), 1 for
// anything else, including command-line usage errors.
func exitCode(err error) int {
	switch {
	case errors.Is(err, dzerr.ErrCancelled) || errors.Is(err, context.Canceled):
		return 130
	case errors.Is(err, dzerr.ErrBadMagic),
		errors.Is(err, dzerr.ErrUnsupportedVersion),
		errors.Is(err, dzerr.ErrTruncated):
		return 3
	case errors.Is(err, os.ErrNotExist):
		return 2
	}

	var (
		corrupt *dzerr.CorruptIndexError
		badFlag *dzerr.BadChunkFlagsError
		path    *dzerr.PathTraversalError
		vol     *dzerr.VolumeMissingError
	)
	switch {
	case errors.As(err, &corrupt), errors.As(err, &badFlag):
		return 3
	case errors.As(err, &path), errors.As(err, &vol):
		return 2
	}

	return 1
}
