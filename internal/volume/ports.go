// Package volume defines the four I/O ports the pipeline engine reads and
// writes through, plus local-filesystem implementations of all four.
// The pipeline never touches os.File or any other concrete I/O
// type directly; it only ever sees these interfaces, so an in-memory
// fake can stand in for tests.
package volume

import (
	"io"

	"github.com/sargunv/dzarchive/internal/dzconfig"
)

// WriteSeekCloser composes the three capabilities PackSink's volume 0
// needs: sequential writes while the payload size is unknown, then a
// seek back to the start once the header can be finalized.
type WriteSeekCloser interface {
	io.Writer
	io.Seeker
	io.Closer
}

// UnpackSource exposes read access to an archive's physical volumes.
type UnpackSource interface {
	// VolumeCount returns the number of physical volumes, including the
	// main file at index 0.
	VolumeCount() int
	// VolumeLength returns the byte length of one physical volume.
	VolumeLength(i int) (int64, error)
	// ReadAt reads len(p) bytes from the given volume at the given
	// offset, as io.ReaderAt does for a single file.
	ReadAt(volume int, offset int64, p []byte) (int, error)
}

// UnpackSink receives the files and directories extracted from an
// archive. Logical paths are forward-slash, already validated by
// internal/model; the sink is responsible for translating them to
// host-native separators.
type UnpackSink interface {
	// CreateDir ensures a directory exists, including its parents.
	CreateDir(logicalPath string) error
	// CreateFile opens a new file for writing, creating parent
	// directories as needed.
	CreateFile(logicalPath string) (io.WriteCloser, error)
	// Finalize is called once after every file has been written.
	Finalize() error
}

// PackSource exposes read access to the files being packed into an
// archive.
type PackSource interface {
	// FileLength returns the length in bytes of the named logical file.
	FileLength(logicalPath string) (int64, error)
	// ReadRange reads len(p) bytes from the named file starting at
	// offset.
	ReadRange(logicalPath string, offset int64, p []byte) (int, error)
}

// PackSink receives the physical volumes written during a pack
// operation.
type PackSink interface {
	// OpenVolume opens physical volume i for writing. Volume 0 must
	// support Seek, since the writer reserves a placeholder for the
	// header and tables and patches it once every chunk's true
	// compressed length is known.
	OpenVolume(i int) (WriteSeekCloser, error)
	// CurrentVolumeOffset reports how many bytes have been written to
	// the currently open volume, used to decide when to roll over to
	// the next split volume.
	CurrentVolumeOffset() int64
	// Finalize is called once after the last chunk and the patched
	// header have been written, receiving the manifest the caller should
	// persist alongside the archive. Volume 0 has not been closed by the
	// writer at that point.
	Finalize(manifest *dzconfig.Manifest) error
}
