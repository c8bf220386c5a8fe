// Package dzerr defines the typed error taxonomy returned at the DZ
// archive engine's port boundaries.
package dzerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions with no offending value to carry.
var (
	// ErrBadMagic indicates the archive does not start with "DTRZ".
	ErrBadMagic = errors.New("dzarchive: bad magic, not a DZ archive")

	// ErrUnsupportedVersion indicates the archive's version byte is not 0.
	ErrUnsupportedVersion = errors.New("dzarchive: unsupported archive version")

	// ErrTruncated indicates a table or payload extends past the end of
	// its volume.
	ErrTruncated = errors.New("dzarchive: archive truncated")

	// ErrCancelled indicates the operation was aborted via its
	// context.Context rather than failing outright.
	ErrCancelled = errors.New("dzarchive: operation cancelled")
)

// CorruptIndexKind names the table in which a CorruptIndexError was
// detected.
type CorruptIndexKind string

const (
	KindChunkIndex     CorruptIndexKind = "chunk_index"
	KindDirectoryIndex CorruptIndexKind = "directory_index"
	KindSharedChunkRun CorruptIndexKind = "shared_chunk_run"
	KindChunkOffset    CorruptIndexKind = "chunk_offset"
)

// CorruptIndexError reports a violation of invariants I1-I6.
type CorruptIndexError struct {
	Kind     CorruptIndexKind
	Offender int
}

func (e *CorruptIndexError) Error() string {
	return fmt.Sprintf("dzarchive: corrupt index (%s): offender %d", e.Kind, e.Offender)
}

// BadChunkFlagsError reports a chunk whose compression bits are zero or
// name more than one algorithm.
type BadChunkFlagsError struct {
	ChunkID int
	Flags   uint16
}

func (e *BadChunkFlagsError) Error() string {
	return fmt.Sprintf("dzarchive: chunk %d has invalid flags 0x%04x", e.ChunkID, e.Flags)
}

// UnsupportedCodecError reports a chunk using a compression flag with no
// registered codec (MP3, JPEG, or DZ) and no keep-raw fallback
// requested. A chunk with no compression bit at all is reported as a
// BadChunkFlagsError instead.
type UnsupportedCodecError struct {
	ChunkID int
	Flag    uint16
}

func (e *UnsupportedCodecError) Error() string {
	return fmt.Sprintf("dzarchive: chunk %d uses unsupported codec flag 0x%04x", e.ChunkID, e.Flag)
}

// CodecFailureError wraps an error raised by a codec's Compress or
// Decompress implementation.
type CodecFailureError struct {
	ChunkID int
	Inner   error
}

func (e *CodecFailureError) Error() string {
	return fmt.Sprintf("dzarchive: codec failure on chunk %d: %v", e.ChunkID, e.Inner)
}

func (e *CodecFailureError) Unwrap() error { return e.Inner }

// PathTraversalError reports a logical path rejected at a port boundary.
type PathTraversalError struct {
	Path string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("dzarchive: path traversal rejected: %q", e.Path)
}

// VolumeMissingError reports a reference to a physical volume index that
// the source/sink port could not resolve.
type VolumeMissingError struct {
	Index int
}

func (e *VolumeMissingError) Error() string {
	return fmt.Sprintf("dzarchive: volume %d missing", e.Index)
}

// SizeMismatchError reports a decompressed (or recompressed) payload
// whose length does not match the chunk table's expectation.
type SizeMismatchError struct {
	ChunkID  int
	Expected uint32
	Got      uint32
}

func (e *SizeMismatchError) Error() string {
	return fmt.Sprintf("dzarchive: chunk %d size mismatch: expected %d, got %d", e.ChunkID, e.Expected, e.Got)
}
