package pipeline

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/sargunv/dzarchive/internal/codec"
	"github.com/sargunv/dzarchive/internal/dzconfig"
	"github.com/sargunv/dzarchive/internal/dzerr"
	"github.com/sargunv/dzarchive/internal/dzfmt"
	"github.com/sargunv/dzarchive/internal/model"
	"github.com/sargunv/dzarchive/internal/progress"
	"github.com/sargunv/dzarchive/internal/volume"
)

// Unpack extracts every user file from source into sink, returning a
// manifest describing what was parsed so the caller can persist it
// alongside the extracted files.
func Unpack(ctx context.Context, src volume.UnpackSource, sink volume.UnpackSink, obs progress.Observer, opts UnpackOptions) (*dzconfig.Manifest, error) {
	if obs == nil {
		obs = progress.Nop
	}
	if ctx.Err() != nil {
		return nil, dzerr.ErrCancelled
	}

	length0, err := src.VolumeLength(0)
	if err != nil {
		return nil, fmt.Errorf("pipeline: volume 0 length: %w", err)
	}
	sr := io.NewSectionReader(volumeReaderAt{src, 0}, 0, length0)

	archive, err := dzfmt.Parse(sr)
	if err != nil {
		return nil, err
	}

	m, err := model.Build(archive, obs)
	if err != nil {
		return nil, err
	}

	for _, c := range m.Chunks {
		if c.PhysicalVolume >= src.VolumeCount() {
			return nil, &dzerr.VolumeMissingError{Index: c.PhysicalVolume}
		}
	}

	volumeLengths := make([]int64, src.VolumeCount())
	for i := range volumeLengths {
		volumeLengths[i], err = src.VolumeLength(i)
		if err != nil {
			return nil, fmt.Errorf("pipeline: volume %d length: %w", i, err)
		}
	}
	for i, c := range m.Chunks {
		if int64(c.Offset) > volumeLengths[c.PhysicalVolume] {
			return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindChunkOffset, Offender: i}
		}
	}
	model.ComputeEffectiveLengths(m, volumeLengths)

	for _, dir := range m.Directories {
		if err := sink.CreateDir(dir); err != nil {
			return nil, fmt.Errorf("pipeline: create directory %q: %w", dir, err)
		}
	}

	chunkData, combufStream, err := decompressChunks(ctx, src, m, obs, sink, opts)
	if err != nil {
		return nil, err
	}

	if err := writeFiles(m, chunkData, combufStream, sink); err != nil {
		return nil, err
	}

	if err := sink.Finalize(); err != nil {
		return nil, fmt.Errorf("pipeline: finalize sink: %w", err)
	}

	return buildManifest(m, archive), nil
}

// decompressChunks runs the bounded parallel decompression phase. It
// returns the per-chunk decompressed buffer (nil for COMBUF chunks,
// whose bytes live in the returned concatenated combufStream instead)
// and the concatenated COMBUF stream.
func decompressChunks(ctx context.Context, src volume.UnpackSource, m *model.Model, obs progress.Observer, sink volume.UnpackSink, opts UnpackOptions) ([][]byte, []byte, error) {
	obs.Start(len(m.Chunks))

	chunkData := make([][]byte, len(m.Chunks))
	combufBase, streamLen := combufBases(m)
	combufStream := make([]byte, streamLen)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())

	for i := range m.Chunks {
		i := i
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return dzerr.ErrCancelled
			default:
			}

			plan := &m.Chunks[i]
			out, err := decompressOne(src, plan, i, sink, obs, opts)
			if err != nil {
				return err
			}

			if base, ok := combufBase[i]; ok {
				// Disjoint chunk ranges in combufStream: safe to write
				// concurrently without a mutex.
				copy(combufStream[base:], out)
			} else {
				chunkData[i] = out
			}

			obs.Inc(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	obs.Finish("decompression complete")
	return chunkData, combufStream, nil
}

// combufBases returns each COMBUF-flagged chunk's starting offset in the
// concatenated logical stream (chunk-index order), and the stream's
// total length.
func combufBases(m *model.Model) (map[int]uint64, uint64) {
	bases := make(map[int]uint64)
	var cursor uint64
	for i, c := range m.Chunks {
		if c.Flags&dzfmt.FlagCombuf != 0 {
			bases[i] = cursor
			cursor += uint64(c.DecompressedLen)
		}
	}
	return bases, cursor
}

func decompressOne(src volume.UnpackSource, plan *model.ChunkPlan, chunkID int, sink volume.UnpackSink, obs progress.Observer, opts UnpackOptions) ([]byte, error) {
	if plan.Flags&dzfmt.FlagZero != 0 {
		return make([]byte, plan.DecompressedLen), nil
	}

	bit, ok := dzfmt.CompressionBit(plan.Flags)
	if !ok {
		return nil, &dzerr.BadChunkFlagsError{ChunkID: chunkID, Flags: plan.Flags}
	}

	raw := make([]byte, plan.EffectiveCompressedLen)
	if _, err := src.ReadAt(plan.PhysicalVolume, int64(plan.Offset), raw); err != nil {
		return nil, fmt.Errorf("pipeline: read chunk %d: %w", chunkID, err)
	}

	c, ok := codec.Lookup(bit)
	if !ok {
		if !opts.KeepRaw {
			return nil, &dzerr.UnsupportedCodecError{ChunkID: chunkID, Flag: bit}
		}
		obs.Warn(fmt.Sprintf("chunk %d uses unsupported codec 0x%04x; writing raw sidecar", chunkID, bit))
		if err := writeSidecar(sink, chunkID, raw); err != nil {
			return nil, err
		}
		return make([]byte, plan.DecompressedLen), nil
	}

	out, err := c.Decompress(raw, int(plan.DecompressedLen))
	if err != nil {
		if !opts.KeepRaw {
			return nil, &dzerr.CodecFailureError{ChunkID: chunkID, Inner: err}
		}
		obs.Warn(fmt.Sprintf("chunk %d codec failure: %v; writing raw sidecar", chunkID, err))
		if sidecarErr := writeSidecar(sink, chunkID, raw); sidecarErr != nil {
			return nil, sidecarErr
		}
		return make([]byte, plan.DecompressedLen), nil
	}
	if len(out) != int(plan.DecompressedLen) {
		return nil, &dzerr.SizeMismatchError{ChunkID: chunkID, Expected: plan.DecompressedLen, Got: uint32(len(out))}
	}
	return out, nil
}

func writeSidecar(sink volume.UnpackSink, chunkID int, raw []byte) error {
	w, err := sink.CreateFile(fmt.Sprintf(".raw_chunks/%05d.bin", chunkID))
	if err != nil {
		return fmt.Errorf("pipeline: create sidecar for chunk %d: %w", chunkID, err)
	}
	defer w.Close()
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("pipeline: write sidecar for chunk %d: %w", chunkID, err)
	}
	return nil
}

func writeFiles(m *model.Model, chunkData [][]byte, combufStream []byte, sink volume.UnpackSink) error {
	for fi, f := range m.Files {
		w, err := sink.CreateFile(f.LogicalPath)
		if err != nil {
			return fmt.Errorf("pipeline: create file %q: %w", f.LogicalPath, err)
		}

		if err := writeFileChunks(w, fi, f, m, chunkData, combufStream); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("pipeline: close file %q: %w", f.LogicalPath, err)
		}
	}
	return nil
}

func writeFileChunks(w io.Writer, fi int, f model.ResolvedFile, m *model.Model, chunkData [][]byte, combufStream []byte) error {
	for _, ci := range f.ChunkRefs {
		plan := &m.Chunks[ci]
		consumer, ok := findConsumer(plan, fi)
		if !ok {
			return fmt.Errorf("pipeline: file %q missing consumer record for chunk %d", f.LogicalPath, ci)
		}

		var slice []byte
		if plan.Flags&dzfmt.FlagCombuf != 0 {
			slice = combufStream[consumer.ByteStart:consumer.ByteEnd]
		} else {
			slice = chunkData[ci][consumer.ByteStart:consumer.ByteEnd]
		}
		if _, err := w.Write(slice); err != nil {
			return fmt.Errorf("pipeline: write file %q: %w", f.LogicalPath, err)
		}
	}
	return nil
}

func findConsumer(plan *model.ChunkPlan, fileIndex int) (model.ChunkConsumer, bool) {
	for _, c := range plan.Consumers {
		if c.FileIndex == fileIndex {
			return c, true
		}
	}
	return model.ChunkConsumer{}, false
}

func buildManifest(m *model.Model, a *dzfmt.Archive) *dzconfig.Manifest {
	files := make([]dzconfig.FileRecord, len(m.Files))
	for i, f := range m.Files {
		refs := make([]int, len(f.ChunkRefs))
		for j, c := range f.ChunkRefs {
			refs[j] = int(c)
		}
		files[i] = dzconfig.FileRecord{
			LogicalPath: f.LogicalPath,
			Directory:   m.Directories[f.DirectoryIndex],
			Filename:    a.UserFiles[i],
			ChunkRefs:   refs,
		}
	}

	chunks := make([]dzconfig.ChunkRecord, len(m.Chunks))
	for i, c := range m.Chunks {
		chunks[i] = dzconfig.ChunkRecord{
			ID:                i,
			Offset:            c.Offset,
			SizeCompressed:    c.EffectiveCompressedLen,
			SizeDecompressed:  c.DecompressedLen,
			Flags:             dzfmt.FlagNames(c.Flags),
			ArchiveFileIndex:  c.PhysicalVolume,
			RawSizeCompressed: c.RawCompressedLen,
		}
	}

	return &dzconfig.Manifest{
		Version:        a.Header.Version,
		NumUserFiles:   len(m.Files),
		NumDirectories: len(m.Directories),
		VolumeNames:    m.VolumeNames,
		Files:          files,
		Chunks:         chunks,
	}
}
