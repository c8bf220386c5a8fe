package volume

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalUnpackSource reads an archive's physical volumes from local
// files. Volume 0 is the main archive file; volumes 1..N-1 are its
// "name.dNN" split-volume siblings, opened up front in index order.
type LocalUnpackSource struct {
	files []*os.File
	sizes []int64
}

// OpenLocalUnpackSource opens archivePath (volume 0) and, for each name
// in volumeNames, the file of that exact name in the main archive's
// directory — volumeNames is taken verbatim from the archive's
// volume-name table and treated as each sibling's on-disk file name.
func OpenLocalUnpackSource(archivePath string, volumeNames []string) (*LocalUnpackSource, error) {
	dir := filepath.Dir(archivePath)

	paths := make([]string, 0, len(volumeNames)+1)
	paths = append(paths, archivePath)
	for _, name := range volumeNames {
		paths = append(paths, filepath.Join(dir, name))
	}

	src := &LocalUnpackSource{
		files: make([]*os.File, len(paths)),
		sizes: make([]int64, len(paths)),
	}
	for i, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			src.closeOpened()
			return nil, fmt.Errorf("volume: open %s: %w", p, err)
		}
		stat, err := f.Stat()
		if err != nil {
			f.Close()
			src.closeOpened()
			return nil, fmt.Errorf("volume: stat %s: %w", p, err)
		}
		src.files[i] = f
		src.sizes[i] = stat.Size()
	}
	return src, nil
}

func (s *LocalUnpackSource) closeOpened() {
	for _, f := range s.files {
		if f != nil {
			f.Close()
		}
	}
}

func (s *LocalUnpackSource) VolumeCount() int { return len(s.files) }

func (s *LocalUnpackSource) VolumeLength(i int) (int64, error) {
	if i < 0 || i >= len(s.sizes) {
		return 0, fmt.Errorf("volume: index %d out of range", i)
	}
	return s.sizes[i], nil
}

func (s *LocalUnpackSource) ReadAt(volume int, offset int64, p []byte) (int, error) {
	if volume < 0 || volume >= len(s.files) {
		return 0, fmt.Errorf("volume: index %d out of range", volume)
	}
	return s.files[volume].ReadAt(p, offset)
}

// Close releases every open volume file.
func (s *LocalUnpackSource) Close() error {
	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// LocalUnpackSink writes extracted files and directories under root,
// translating forward-slash logical paths to host-native separators.
type LocalUnpackSink struct {
	root string
}

// NewLocalUnpackSink returns a sink rooted at dir, which must already
// exist.
func NewLocalUnpackSink(dir string) *LocalUnpackSink {
	return &LocalUnpackSink{root: dir}
}

func (s *LocalUnpackSink) hostPath(logicalPath string) string {
	return filepath.Join(s.root, filepath.FromSlash(logicalPath))
}

func (s *LocalUnpackSink) CreateDir(logicalPath string) error {
	if logicalPath == "" {
		return nil
	}
	return os.MkdirAll(s.hostPath(logicalPath), 0o755)
}

func (s *LocalUnpackSink) CreateFile(logicalPath string) (io.WriteCloser, error) {
	p := s.hostPath(logicalPath)
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("volume: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.Create(p)
	if err != nil {
		return nil, fmt.Errorf("volume: create %s: %w", p, err)
	}
	return f, nil
}

func (s *LocalUnpackSink) Finalize() error { return nil }

// splitVolumeName derives the conventional "name.dNN" suffix for split
// volume index i (1-based among siblings, i.e. i==1 -> "d01").
func splitVolumeName(base string, i int) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s.d%02d", stem, i)
}
