package model

import (
	"github.com/sargunv/dzarchive/internal/dzerr"
	"github.com/sargunv/dzarchive/internal/dzfmt"
	"github.com/sargunv/dzarchive/internal/progress"
)

// Build resolves a parsed Archive into a validated Model: it applies the
// legacy NumDirectories==0 fixup, walks the mapping stream to assign
// chunk byte ranges to files, and validates invariants I1-I5. Of I6 it
// checks only that each chunk's volume index is below NumArchiveFiles;
// chunk offsets are checked against the real volume lengths by
// pipeline.Unpack, since Build does not know them. obs may be
// progress.Nop.
func Build(a *dzfmt.Archive, obs progress.Observer) (*Model, error) {
	if obs == nil {
		obs = progress.Nop
	}

	directories := a.Directories
	if len(directories) == 0 {
		obs.Warn("archive declares zero directories; synthesizing an implicit root directory")
		directories = []string{""}
	}

	if len(a.UserFiles) == 0 {
		return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindDirectoryIndex, Offender: 0}
	}

	numChunks := int(a.ChunkSettings.NumChunks)

	if len(a.Mapping) != len(a.UserFiles) {
		return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindChunkIndex, Offender: len(a.Mapping)}
	}

	files := make([]ResolvedFile, len(a.UserFiles))
	for i, fm := range a.Mapping {
		if int(fm.DirectoryIndex) >= len(directories) {
			return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindDirectoryIndex, Offender: int(fm.DirectoryIndex)}
		}
		for _, c := range fm.ChunkRefs {
			if int(c) >= numChunks {
				return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindChunkIndex, Offender: int(c)}
			}
		}

		path, err := NormalizePath(directories[fm.DirectoryIndex], a.UserFiles[i])
		if err != nil {
			return nil, err
		}

		files[i] = ResolvedFile{
			DirectoryIndex: int(fm.DirectoryIndex),
			LogicalPath:    path,
			ChunkRefs:      fm.ChunkRefs,
		}
	}

	chunks := make([]ChunkPlan, numChunks)
	for i, rec := range a.Chunks {
		if _, ok := dzfmt.CompressionBit(rec.Flags); !ok {
			return nil, &dzerr.BadChunkFlagsError{ChunkID: i, Flags: rec.Flags}
		}
		if int(rec.File) >= int(a.ChunkSettings.NumArchiveFiles) {
			return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindChunkOffset, Offender: int(rec.File)}
		}
		chunks[i] = ChunkPlan{
			PhysicalVolume:   int(rec.File),
			Offset:           rec.Offset,
			RawCompressedLen: rec.CompressedLength,
			DecompressedLen:  rec.DecompressedLength,
			Flags:            rec.Flags,
		}
	}

	// Find, for each chunk, the contiguous run of files referencing it,
	// then slice its decompressed bytes among them.
	consumerRuns := make([][]int, numChunks) // chunk index -> file indices referencing it, in file order
	for fi, f := range files {
		for _, c := range f.ChunkRefs {
			consumerRuns[c] = append(consumerRuns[c], fi)
		}
	}

	// COMBUF chunks are decoded as one concatenated logical stream, in
	// chunk-index order; give each COMBUF chunk's consumers a
	// byte range in that global stream's coordinates rather than its own
	// local decompressed-buffer coordinates, so the pipeline can slice
	// directly out of the concatenated buffer it builds at decode time.
	combufBase := make(map[int]uint64, numChunks)
	var combufCursor uint64
	for ci, c := range chunks {
		if c.Flags&dzfmt.FlagCombuf != 0 {
			combufBase[ci] = combufCursor
			combufCursor += uint64(c.DecompressedLen)
		}
	}

	for ci, consumers := range consumerRuns {
		if len(consumers) == 0 {
			continue
		}
		if !isContiguous(consumers) {
			return nil, &dzerr.CorruptIndexError{Kind: dzerr.KindSharedChunkRun, Offender: ci}
		}

		total := uint64(chunks[ci].DecompressedLen)
		k := len(consumers)
		slice := total / uint64(k)
		remainder := total - slice*uint64(k-1)

		base := combufBase[ci]
		var cursor uint64
		for idx, fi := range consumers {
			length := slice
			if idx == k-1 {
				length = remainder
			}
			chunks[ci].Consumers = append(chunks[ci].Consumers, ChunkConsumer{
				FileIndex: fi,
				ByteStart: base + cursor,
				ByteEnd:   base + cursor + length,
			})
			files[fi].ExpectedLength += length
			cursor += length
		}
	}

	return &Model{
		Directories:     directories,
		VolumeNames:     a.VolumeNames,
		Files:           files,
		Chunks:          chunks,
		DecoderSettings: a.DecoderSettings,
	}, nil
}

// isContiguous reports whether a sorted-by-construction slice of file
// indices forms a contiguous ascending run (fi, fi+1, fi+2, ...).
func isContiguous(fileIndices []int) bool {
	for i := 1; i < len(fileIndices); i++ {
		if fileIndices[i] != fileIndices[i-1]+1 {
			return false
		}
	}
	return true
}
