package pipeline

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/sargunv/dzarchive/internal/codec"
	"github.com/sargunv/dzarchive/internal/dzconfig"
	"github.com/sargunv/dzarchive/internal/dzerr"
	"github.com/sargunv/dzarchive/internal/dzfmt"
	"github.com/sargunv/dzarchive/internal/model"
	"github.com/sargunv/dzarchive/internal/progress"
	"github.com/sargunv/dzarchive/internal/volume"
)

// Pack builds a DZ archive from manifest and the files in src, writing
// physical volumes through sink.
func Pack(ctx context.Context, manifest *dzconfig.Manifest, src volume.PackSource, sink volume.PackSink, obs progress.Observer, opts PackOptions) error {
	if obs == nil {
		obs = progress.Nop
	}
	if ctx.Err() != nil {
		return dzerr.ErrCancelled
	}

	archive, err := archiveFromManifest(manifest)
	if err != nil {
		return err
	}

	m, err := model.Build(archive, obs)
	if err != nil {
		return err
	}

	if err := validateSourceLengths(src, m); err != nil {
		return err
	}

	chunkPayloads, err := assembleChunkPayloads(src, m)
	if err != nil {
		return err
	}

	return runPackWriter(ctx, m, archive, chunkPayloads, sink, obs, opts, manifest)
}

func validateSourceLengths(src volume.PackSource, m *model.Model) error {
	for _, f := range m.Files {
		n, err := src.FileLength(f.LogicalPath)
		if err != nil {
			return fmt.Errorf("pipeline: pack source %q: %w", f.LogicalPath, err)
		}
		if uint64(n) != f.ExpectedLength {
			return fmt.Errorf("pipeline: source file %q is %d bytes, manifest expects %d", f.LogicalPath, n, f.ExpectedLength)
		}
	}
	return nil
}

// assembleChunkPayloads reads every source file once, splitting its
// bytes across its chunk refs according to the byte ranges model.Build
// assigned, and reassembles per-chunk decompressed payloads — the exact
// inverse of the unpack engine's writeFileChunks.
func assembleChunkPayloads(src volume.PackSource, m *model.Model) ([][]byte, error) {
	combufBase, combufLen := combufBases(m)
	combufStream := make([]byte, combufLen)

	chunkBuf := make([][]byte, len(m.Chunks))
	for i, c := range m.Chunks {
		if _, ok := combufBase[i]; !ok {
			chunkBuf[i] = make([]byte, c.DecompressedLen)
		}
	}

	for fi, f := range m.Files {
		data := make([]byte, f.ExpectedLength)
		if len(data) > 0 {
			if _, err := src.ReadRange(f.LogicalPath, 0, data); err != nil {
				return nil, fmt.Errorf("pipeline: read %q: %w", f.LogicalPath, err)
			}
		}

		var cursor uint64
		for _, ci := range f.ChunkRefs {
			plan := &m.Chunks[ci]
			consumer, ok := findConsumer(plan, fi)
			if !ok {
				return nil, fmt.Errorf("pipeline: file %q missing consumer record for chunk %d", f.LogicalPath, ci)
			}
			length := consumer.ByteEnd - consumer.ByteStart
			slice := data[cursor : cursor+length]

			if _, isCombuf := combufBase[ci]; isCombuf {
				copy(combufStream[consumer.ByteStart:consumer.ByteEnd], slice)
			} else {
				copy(chunkBuf[ci][consumer.ByteStart:consumer.ByteEnd], slice)
			}
			cursor += length
		}
	}

	for i, c := range m.Chunks {
		if base, ok := combufBase[i]; ok {
			chunkBuf[i] = combufStream[base : base+uint64(c.DecompressedLen)]
		}
	}

	return chunkBuf, nil
}

type compressedChunk struct {
	id      int
	payload []byte
}

// runPackWriter compresses every chunk in a bounded worker pool and
// hands completed payloads to a single writer goroutine, which emits
// them to the active volume in strictly ascending chunk-id order,
// rolling over to a new volume past the configured split threshold, and
// finally patches the placeholder header once every chunk's true size
// is known.
func runPackWriter(ctx context.Context, m *model.Model, archive *dzfmt.Archive, chunkBuf [][]byte, sink volume.PackSink, obs progress.Observer, opts PackOptions, manifest *dzconfig.Manifest) error {
	obs.Start(len(m.Chunks))

	workers := opts.workers()
	sem := semaphore.NewWeighted(int64(reorderBufferSlots * workers))
	results := make(chan compressedChunk, workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return writerLoop(gctx, m, archive, sink, results, obs, opts, manifest, sem)
	})

	compress := func() error {
		defer close(results)
		cg, cctx := errgroup.WithContext(gctx)
		cg.SetLimit(workers)

		for i := range m.Chunks {
			i := i
			if err := sem.Acquire(cctx, 1); err != nil {
				return err
			}
			cg.Go(func() error {
				payload, err := compressOne(&m.Chunks[i], i, chunkBuf[i])
				if err != nil {
					return err
				}
				select {
				case results <- compressedChunk{id: i, payload: payload}:
				case <-cctx.Done():
					return cctx.Err()
				}
				return nil
			})
		}
		return cg.Wait()
	}

	g.Go(compress)

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return dzerr.ErrCancelled
		}
		return err
	}
	obs.Finish("pack complete")
	return nil
}

func compressOne(plan *model.ChunkPlan, chunkID int, decompressed []byte) ([]byte, error) {
	if plan.Flags&dzfmt.FlagZero != 0 {
		return nil, nil
	}

	bit, ok := dzfmt.CompressionBit(plan.Flags)
	if !ok {
		return nil, &dzerr.BadChunkFlagsError{ChunkID: chunkID, Flags: plan.Flags}
	}

	c, ok := codec.Lookup(bit)
	if !ok {
		return nil, &dzerr.UnsupportedCodecError{ChunkID: chunkID, Flag: bit}
	}

	out, err := c.Compress(decompressed)
	if err != nil {
		return nil, &dzerr.CodecFailureError{ChunkID: chunkID, Inner: err}
	}
	return out, nil
}

// writerLoop owns the single sequential-write role: it buffers completed
// chunk payloads in a reorder map and flushes the longest available
// ascending-chunk-id prefix to the active volume. It releases sem as each
// payload actually leaves the reorder map, not merely when a worker hands
// it over, so a stalled low-id chunk still caps how many finished payloads
// can pile up waiting behind it.
func writerLoop(ctx context.Context, m *model.Model, archive *dzfmt.Archive, sink volume.PackSink, results <-chan compressedChunk, obs progress.Observer, opts PackOptions, manifest *dzconfig.Manifest, sem *semaphore.Weighted) error {
	headerSize := int64(dzfmt.Size(archive))

	vol0, err := sink.OpenVolume(0)
	if err != nil {
		return fmt.Errorf("pipeline: open volume 0: %w", err)
	}
	if _, err := vol0.Write(make([]byte, headerSize)); err != nil {
		return fmt.Errorf("pipeline: reserve header placeholder: %w", err)
	}
	vol := vol0

	volumeIndex := 0
	volumeNames := []string{}
	pending := make(map[int][]byte)
	nextID := 0
	written := 0

	flushReady := func() error {
		for {
			payload, ok := pending[nextID]
			if !ok {
				return nil
			}
			delete(pending, nextID)
			sem.Release(1)

			if opts.SplitBytes > 0 && sink.CurrentVolumeOffset()+int64(len(payload)) > opts.SplitBytes && sink.CurrentVolumeOffset() > 0 {
				// Volume 0 stays open: its header is patched at the end.
				if vol != vol0 {
					if err := vol.Close(); err != nil {
						return fmt.Errorf("pipeline: close volume %d: %w", volumeIndex, err)
					}
				}
				volumeIndex++
				v, err := sink.OpenVolume(volumeIndex)
				if err != nil {
					return fmt.Errorf("pipeline: open volume %d: %w", volumeIndex, err)
				}
				vol = v
				volumeNames = append(volumeNames, volumeNameFor(manifest, volumeIndex))
			}

			m.Chunks[nextID].PhysicalVolume = volumeIndex
			m.Chunks[nextID].Offset = uint32(sink.CurrentVolumeOffset())
			m.Chunks[nextID].EffectiveCompressedLen = uint32(len(payload))

			if len(payload) > 0 {
				if _, err := vol.Write(payload); err != nil {
					return fmt.Errorf("pipeline: write chunk %d: %w", nextID, err)
				}
			}

			obs.Inc(1)
			written++
			nextID++
		}
	}

	for {
		select {
		case <-ctx.Done():
			return dzerr.ErrCancelled
		case r, ok := <-results:
			if !ok {
				if err := flushReady(); err != nil {
					return err
				}
				if written != len(m.Chunks) {
					return fmt.Errorf("pipeline: writer finished with %d/%d chunks flushed", written, len(m.Chunks))
				}
				m.VolumeNames = volumeNames
				return finalizeArchive(archive, m, vol0, sink, manifest)
			}
			pending[r.id] = r.payload
			if err := flushReady(); err != nil {
				return err
			}
		}
	}
}

// finalizeArchive patches volume 0's placeholder header/tables with the
// final, fully-resolved archive metadata now that every chunk's true
// compressed size and offset are known.
func finalizeArchive(archive *dzfmt.Archive, m *model.Model, vol volume.WriteSeekCloser, sink volume.PackSink, manifest *dzconfig.Manifest) error {
	for i := range archive.Chunks {
		archive.Chunks[i].Offset = m.Chunks[i].Offset
		archive.Chunks[i].File = uint16(m.Chunks[i].PhysicalVolume)
		archive.Chunks[i].CompressedLength = m.Chunks[i].EffectiveCompressedLen
	}
	archive.VolumeNames = m.VolumeNames
	archive.ChunkSettings.NumArchiveFiles = uint16(len(m.VolumeNames) + 1)

	if _, err := vol.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("pipeline: seek volume 0: %w", err)
	}
	if err := dzfmt.Write(vol, archive); err != nil {
		return fmt.Errorf("pipeline: write finalized header: %w", err)
	}

	if err := sink.Finalize(manifest); err != nil {
		return fmt.Errorf("pipeline: finalize sink: %w", err)
	}
	return nil
}

// volumeNameFor returns the split-volume name to record in the header
// for the i'th non-primary volume (i is 1-based: volume 0 is the
// primary and carries no name of its own). A repack reuses the name the
// manifest already carries for that slot; a fresh pack beyond the
// manifest's known volumes falls back to the ".dNN" convention the
// local volume ports use.
func volumeNameFor(manifest *dzconfig.Manifest, i int) string {
	if i-1 < len(manifest.VolumeNames) {
		return manifest.VolumeNames[i-1]
	}
	return fmt.Sprintf(".d%02d", i)
}

// archiveFromManifest reconstructs the dzfmt.Archive skeleton the model
// needs to revalidate and re-resolve chunk byte ranges. Offsets and
// compressed lengths are placeholders; the writer fills in the real
// values as it emits each chunk.
func archiveFromManifest(manifest *dzconfig.Manifest) (*dzfmt.Archive, error) {
	dirIndex := make(map[string]int)
	var directories []string
	userFiles := make([]string, len(manifest.Files))
	mapping := make([]dzfmt.FileMapping, len(manifest.Files))

	for i, f := range manifest.Files {
		di, ok := dirIndex[f.Directory]
		if !ok {
			di = len(directories)
			dirIndex[f.Directory] = di
			directories = append(directories, f.Directory)
		}
		userFiles[i] = f.Filename

		refs := make([]uint16, len(f.ChunkRefs))
		for j, r := range f.ChunkRefs {
			refs[j] = uint16(r)
		}
		mapping[i] = dzfmt.FileMapping{DirectoryIndex: uint16(di), ChunkRefs: refs}
	}

	chunks := make([]dzfmt.ChunkRecord, len(manifest.Chunks))
	for i, c := range manifest.Chunks {
		flags, err := flagsFromNames(c.Flags)
		if err != nil {
			return nil, err
		}
		chunks[i] = dzfmt.ChunkRecord{
			DecompressedLength: c.SizeDecompressed,
			Flags:              flags,
		}
	}

	return &dzfmt.Archive{
		Header: dzfmt.Header{
			Magic:          dzfmt.Magic,
			NumUserFiles:   uint16(len(userFiles)),
			NumDirectories: uint16(len(directories)),
			Version:        manifest.Version,
		},
		UserFiles:   userFiles,
		Directories: directories,
		Mapping:     mapping,
		ChunkSettings: dzfmt.ChunkSettings{
			NumArchiveFiles: uint16(len(manifest.VolumeNames) + 1),
			NumChunks:       uint16(len(chunks)),
		},
		Chunks:      chunks,
		VolumeNames: manifest.VolumeNames,
	}, nil
}

func flagsFromNames(names []string) (uint16, error) {
	var flags uint16
	for _, name := range names {
		bit, ok := flagByName[name]
		if !ok {
			return 0, fmt.Errorf("pipeline: unknown chunk flag name %q", name)
		}
		flags |= bit
	}
	return flags, nil
}

var flagByName = map[string]uint16{
	"COMBUF":       dzfmt.FlagCombuf,
	"DZ":           dzfmt.FlagDZ,
	"ZLIB":         dzfmt.FlagZlib,
	"BZIP":         dzfmt.FlagBzip,
	"MP3":          dzfmt.FlagMP3,
	"JPEG":         dzfmt.FlagJPEG,
	"ZERO":         dzfmt.FlagZero,
	"COPYCOMP":     dzfmt.FlagCopyComp,
	"LZMA":         dzfmt.FlagLZMA,
	"RANDOMACCESS": dzfmt.FlagRandomAccess,
}
