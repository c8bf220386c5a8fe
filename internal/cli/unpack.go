package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sargunv/dzarchive/internal/dzconfig"
	"github.com/sargunv/dzarchive/internal/dzfmt"
	"github.com/sargunv/dzarchive/internal/pipeline"
	"github.com/sargunv/dzarchive/internal/progress"
	"github.com/sargunv/dzarchive/internal/volume"
)

var (
	unpackKeepRaw    bool
	unpackConfigPath string
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive> [outdir]",
	Short: "Extract a DZ archive's user files into a directory",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runUnpack,
}

func init() {
	unpackCmd.Flags().BoolVar(&unpackKeepRaw, "keep-raw", false, "route unsupported or failed codecs to raw sidecar files instead of aborting")
	unpackCmd.Flags().StringVar(&unpackConfigPath, "config", "", "manifest output path (default <outdir>/dzarchive.toml)")
}

func runUnpack(cmd *cobra.Command, args []string) error {
	archivePath := args[0]
	outDir := archivePath + ".out"
	if len(args) == 2 {
		outDir = args[1]
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", outDir, err)
	}

	volumeNames, err := peekVolumeNames(archivePath)
	if err != nil {
		return err
	}

	src, err := volume.OpenLocalUnpackSource(archivePath, volumeNames)
	if err != nil {
		return err
	}
	defer src.Close()

	sink := volume.NewLocalUnpackSink(outDir)

	obs := newObserver("unpack")
	defer finishObserver(obs)

	ctx, cancel := runContext()
	defer cancel()

	manifest, err := pipeline.Unpack(ctx, src, sink, obs, pipeline.UnpackOptions{
		Workers: workers,
		KeepRaw: unpackKeepRaw,
	})
	if err != nil {
		return err
	}

	cfgPath := unpackConfigPath
	if cfgPath == "" {
		cfgPath = filepath.Join(outDir, "dzarchive.toml")
	}
	if err := dzconfig.Save(cfgPath, manifest); err != nil {
		return err
	}

	logger().Info("unpack complete", "archive", archivePath, "outdir", outDir, "manifest", cfgPath, "files", manifest.NumUserFiles)
	return nil
}

// peekVolumeNames opens just the main archive file to decode its header
// and index tables (dzfmt.Parse never reads chunk payload bytes), so the
// caller learns the split-volume sibling names before it can open them
// all through volume.OpenLocalUnpackSource.
func peekVolumeNames(archivePath string) ([]string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", archivePath, err)
	}
	defer f.Close()

	a, err := dzfmt.Parse(f)
	if err != nil {
		return nil, err
	}
	return a.VolumeNames, nil
}

// newObserver returns progress.Nop under --quiet, otherwise a live
// terminal observer.
func newObserver(label string) progress.Observer {
	if quiet {
		return progress.Nop
	}
	return progress.NewTerminal(label)
}

func finishObserver(obs progress.Observer) {
	// Safe to defer unconditionally: pipeline.Unpack/Pack already call
	// Finish on success, Terminal.Finish is idempotent, and Nop.Finish is
	// always a no-op. This only does real work when an error short-circuits
	// the pipeline before it reaches its own Finish.
	obs.Finish("done")
}
