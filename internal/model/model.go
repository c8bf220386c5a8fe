// Package model builds the in-memory archive graph from parsed dzfmt
// tables: it resolves the mapping stream into per-file chunk assignments,
// slices shared chunks among their consumers, validates the format's
// invariants, and normalizes/sanitizes logical paths. Unpack and pack both
// build a Model before touching any volume I/O.
package model

import "github.com/sargunv/dzarchive/internal/dzfmt"

// ResolvedFile is one user-visible file: its directory, its normalized
// logical path, the chunk indices it draws bytes from (in order), and its
// total expected decompressed length.
type ResolvedFile struct {
	DirectoryIndex int
	LogicalPath    string
	ChunkRefs      []uint16
	ExpectedLength uint64
}

// ChunkConsumer records the byte range of a chunk's decompressed stream
// that belongs to one file. For a COMBUF chunk the range is expressed in
// the coordinates of the concatenated COMBUF stream, not the chunk's own
// buffer.
type ChunkConsumer struct {
	FileIndex int
	ByteStart uint64
	ByteEnd   uint64
}

// ChunkPlan is the resolved, validated view of one chunk table record:
// where its compressed bytes live, what the legacy and recomputed
// compressed lengths are, and which files consume which slice of its
// decompressed bytes.
type ChunkPlan struct {
	PhysicalVolume        int
	Offset                uint32
	RawCompressedLen       uint32
	EffectiveCompressedLen uint32
	DecompressedLen        uint32
	Flags                  uint16
	Consumers              []ChunkConsumer
}

// Model is the fully resolved archive graph: one ResolvedFile per user
// file, one ChunkPlan per chunk, and the directory/volume-name tables
// carried through unchanged (after the legacy NumDirectories==0 fixup).
type Model struct {
	Directories []string
	VolumeNames []string
	Files       []ResolvedFile
	Chunks      []ChunkPlan

	DecoderSettings []dzfmt.DecoderSettingsBlock
}
