// Package dzfmt implements the bit-exact binary codec for the DZ archive
// format: the fixed 9-byte header, the null-terminated string tables, the
// u16 mapping stream, the chunk table, the split-volume name list, and
// the per-decoder settings blocks.
//
// Everything in this package is pure encoding/decoding of fixed-layout,
// little-endian, unpadded structures — no chunk payload bytes are read
// or written here (see internal/pipeline for that) and no path or
// invariant validation happens here (see internal/model for that).
package dzfmt

// Magic is the 4-byte signature every DZ archive begins with.
var Magic = [4]byte{'D', 'T', 'R', 'Z'}

// SupportedVersion is the only archive version byte this codec accepts.
const SupportedVersion = 0

// ChunkRecordSize is the on-disk size in bytes of a single Chunk table
// entry.
const ChunkRecordSize = 16

// RangeCoderSettingsSize is the on-disk size in bytes of the proprietary
// range-coder (FlagDZ) decoder settings block. It is the only codec with
// a defined settings-block layout; the core never interprets its
// contents.
const RangeCoderSettingsSize = 10

// Header is the fixed 9-byte archive header.
type Header struct {
	Magic          [4]byte
	NumUserFiles   uint16
	NumDirectories uint16
	Version        uint8
}

// ChunkSettings is the 4-byte record preceding the chunk table.
type ChunkSettings struct {
	NumArchiveFiles uint16
	NumChunks       uint16
}

// ChunkRecord is a single 16-byte entry of the chunk table.
type ChunkRecord struct {
	Offset             uint32
	CompressedLength   uint32 // raw, possibly-unreliable field; the effective on-disk length is recomputed from neighboring chunk offsets instead
	DecompressedLength uint32
	Flags              uint16
	File               uint16
}

// FileMapping is one user file's entry in the decoded mapping stream:
// its directory index followed by the chunk indices referencing it, in
// order, up to the 0xFFFF terminator.
type FileMapping struct {
	DirectoryIndex uint16
	ChunkRefs      []uint16
}

// DecoderSettingsBlock is one entry of the per-decoder settings section,
// in first-occurrence order of its compression flag across the chunk
// table.
type DecoderSettingsBlock struct {
	Flag uint16
	Data []byte
}

// Archive is the fully parsed on-disk representation of a DZ archive,
// with no chunk payload bytes loaded — only the header and index tables.
type Archive struct {
	Header          Header
	UserFiles       []string
	Directories     []string
	Mapping         []FileMapping
	ChunkSettings   ChunkSettings
	Chunks          []ChunkRecord
	VolumeNames     []string // len == ChunkSettings.NumArchiveFiles-1
	DecoderSettings []DecoderSettingsBlock
}
