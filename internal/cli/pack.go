package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sargunv/dzarchive/internal/dzconfig"
	"github.com/sargunv/dzarchive/internal/pipeline"
	"github.com/sargunv/dzarchive/internal/volume"
)

var (
	packConfigPath string
	packSplitBytes int64
)

var packCmd = &cobra.Command{
	Use:   "pack <indir> <archive>",
	Short: "Reassemble a DZ archive from a manifest and its extracted files",
	Args:  cobra.ExactArgs(2),
	RunE:  runPack,
}

func init() {
	packCmd.Flags().StringVar(&packConfigPath, "config", "", "manifest input path (default <indir>/dzarchive.toml)")
	packCmd.Flags().Int64Var(&packSplitBytes, "split-bytes", 0, "roll over to a new split volume past this many bytes (0 = use the manifest's split_bytes; no splitting if that is 0 too)")
}

func runPack(cmd *cobra.Command, args []string) error {
	inDir, archivePath := args[0], args[1]

	cfgPath := packConfigPath
	if cfgPath == "" {
		cfgPath = filepath.Join(inDir, "dzarchive.toml")
	}
	manifest, err := dzconfig.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load manifest %s: %w", cfgPath, err)
	}

	src := volume.NewLocalPackSource(inDir)
	sink := volume.NewLocalPackSink(archivePath)

	obs := newObserver("pack")
	defer finishObserver(obs)

	opts := pipeline.PackOptions{
		Workers:    workers,
		SplitBytes: packSplitBytes,
	}
	if opts.SplitBytes == 0 {
		opts.SplitBytes = manifest.Pack.SplitBytes
	}

	ctx, cancel := runContext()
	defer cancel()

	if err := pipeline.Pack(ctx, manifest, src, sink, obs, opts); err != nil {
		return err
	}

	logger().Info("pack complete", "indir", inDir, "archive", archivePath, "files", manifest.NumUserFiles)
	return nil
}
