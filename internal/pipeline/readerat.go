package pipeline

import "github.com/sargunv/dzarchive/internal/volume"

// volumeReaderAt adapts one physical volume of an UnpackSource to
// io.ReaderAt, so it can be wrapped in an io.SectionReader and handed to
// dzfmt.Parse.
type volumeReaderAt struct {
	src    volume.UnpackSource
	volume int
}

func (v volumeReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return v.src.ReadAt(v.volume, off, p)
}
