package volume

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sargunv/dzarchive/internal/dzconfig"
)

// LocalPackSource reads the files being packed from a local directory,
// rooted at dir.
type LocalPackSource struct {
	root string
}

// NewLocalPackSource returns a source rooted at dir.
func NewLocalPackSource(dir string) *LocalPackSource {
	return &LocalPackSource{root: dir}
}

func (s *LocalPackSource) hostPath(logicalPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(logicalPath))
}

func (s *LocalPackSource) FileLength(logicalPath string) (int64, error) {
	stat, err := os.Stat(s.hostPath(logicalPath))
	if err != nil {
		return 0, fmt.Errorf("volume: stat %s: %w", logicalPath, err)
	}
	return stat.Size(), nil
}

func (s *LocalPackSource) ReadRange(logicalPath string, offset int64, p []byte) (int, error) {
	f, err := os.Open(s.hostPath(logicalPath))
	if err != nil {
		return 0, fmt.Errorf("volume: open %s: %w", logicalPath, err)
	}
	defer f.Close()
	return f.ReadAt(p, offset)
}

// LocalPackSink writes an archive's physical volumes to local files
// named after archivePath: volume 0 is archivePath itself, and volume i
// (i>=1) is "<archivePath-without-ext>.d<i two-digit>". Every volume's
// file handle stays open until Finalize, since the writer patches
// volume 0's placeholder header only after every later volume has
// already been written.
type LocalPackSink struct {
	archivePath string
	opened      []*os.File
	currentOff  int64
}

// NewLocalPackSink returns a sink that will create archivePath and any
// split-volume siblings alongside it.
func NewLocalPackSink(archivePath string) *LocalPackSink {
	return &LocalPackSink{archivePath: archivePath}
}

func (s *LocalPackSink) volumePath(i int) string {
	if i == 0 {
		return s.archivePath
	}
	return filepath.Join(filepath.Dir(s.archivePath), splitVolumeName(filepath.Base(s.archivePath), i))
}

func (s *LocalPackSink) OpenVolume(i int) (WriteSeekCloser, error) {
	p := s.volumePath(i)
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("volume: create %s: %w", p, err)
	}
	s.opened = append(s.opened, f)
	s.currentOff = 0
	return &trackedVolume{file: f, sink: s}, nil
}

func (s *LocalPackSink) CurrentVolumeOffset() int64 { return s.currentOff }

func (s *LocalPackSink) Finalize(manifest *dzconfig.Manifest) error {
	for _, f := range s.opened {
		if err := f.Close(); err != nil {
			return fmt.Errorf("volume: close %s: %w", f.Name(), err)
		}
	}
	return nil
}

// trackedVolume wraps the currently open volume file so every Write
// updates the sink's CurrentVolumeOffset, which the pipeline polls to
// decide when to roll over to the next split volume.
type trackedVolume struct {
	file *os.File
	sink *LocalPackSink
}

func (t *trackedVolume) Write(p []byte) (int, error) {
	n, err := t.file.Write(p)
	t.sink.currentOff += int64(n)
	return n, err
}

func (t *trackedVolume) Seek(offset int64, whence int) (int64, error) {
	return t.file.Seek(offset, whence)
}

func (t *trackedVolume) Close() error { return nil } // the sink closes every volume file in Finalize

var _ io.Writer = (*trackedVolume)(nil)
