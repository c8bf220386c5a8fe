package pipeline

import (
	"bytes"
	"fmt"
	"io"

	"github.com/sargunv/dzarchive/internal/dzconfig"
	"github.com/sargunv/dzarchive/internal/volume"
)

// memUnpackSource is an in-memory volume.UnpackSource backed by one
// []byte per physical volume.
type memUnpackSource struct {
	volumes [][]byte
}

func (s *memUnpackSource) VolumeCount() int { return len(s.volumes) }

func (s *memUnpackSource) VolumeLength(i int) (int64, error) {
	if i < 0 || i >= len(s.volumes) {
		return 0, fmt.Errorf("volume %d missing", i)
	}
	return int64(len(s.volumes[i])), nil
}

func (s *memUnpackSource) ReadAt(vol int, offset int64, p []byte) (int, error) {
	if vol < 0 || vol >= len(s.volumes) {
		return 0, fmt.Errorf("volume %d missing", vol)
	}
	data := s.volumes[vol]
	if offset < 0 || offset > int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[offset:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

// memUnpackSink is an in-memory volume.UnpackSink recording created
// directories and extracted file contents.
type memUnpackSink struct {
	dirs  map[string]bool
	files map[string][]byte
}

func newMemUnpackSink() *memUnpackSink {
	return &memUnpackSink{dirs: make(map[string]bool), files: make(map[string][]byte)}
}

func (s *memUnpackSink) CreateDir(logicalPath string) error {
	s.dirs[logicalPath] = true
	return nil
}

func (s *memUnpackSink) CreateFile(logicalPath string) (io.WriteCloser, error) {
	return &memFileWriter{sink: s, path: logicalPath}, nil
}

func (s *memUnpackSink) Finalize() error { return nil }

type memFileWriter struct {
	sink *memUnpackSink
	path string
	buf  bytes.Buffer
}

func (w *memFileWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *memFileWriter) Close() error {
	w.sink.files[w.path] = append([]byte(nil), w.buf.Bytes()...)
	return nil
}

// memPackSource is an in-memory volume.PackSource backed by a flat
// logical-path -> content map.
type memPackSource struct {
	files map[string][]byte
}

func (s *memPackSource) FileLength(logicalPath string) (int64, error) {
	data, ok := s.files[logicalPath]
	if !ok {
		return 0, fmt.Errorf("file %q missing", logicalPath)
	}
	return int64(len(data)), nil
}

func (s *memPackSource) ReadRange(logicalPath string, offset int64, p []byte) (int, error) {
	data, ok := s.files[logicalPath]
	if !ok {
		return 0, fmt.Errorf("file %q missing", logicalPath)
	}
	if offset < 0 || offset > int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[offset:])
	return n, nil
}

// memSeekWriter is an in-memory io.Writer+io.Seeker+io.Closer standing in
// for a single physical volume's file handle.
type memSeekWriter struct {
	data []byte
	pos  int64
}

func (w *memSeekWriter) Write(p []byte) (int, error) {
	end := w.pos + int64(len(p))
	if end > int64(len(w.data)) {
		grown := make([]byte, end)
		copy(grown, w.data)
		w.data = grown
	}
	copy(w.data[w.pos:end], p)
	w.pos = end
	return len(p), nil
}

func (w *memSeekWriter) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		w.pos = offset
	case io.SeekCurrent:
		w.pos += offset
	case io.SeekEnd:
		w.pos = int64(len(w.data)) + offset
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	return w.pos, nil
}

func (w *memSeekWriter) Close() error { return nil }

// memPackSink is an in-memory volume.PackSink recording every volume's
// final bytes and the manifest passed to Finalize.
type memPackSink struct {
	volumes     []*memSeekWriter
	current     *memSeekWriter
	manifestOut *dzconfig.Manifest
}

func (s *memPackSink) OpenVolume(i int) (volume.WriteSeekCloser, error) {
	for len(s.volumes) <= i {
		s.volumes = append(s.volumes, nil)
	}
	v := &memSeekWriter{}
	s.volumes[i] = v
	s.current = v
	return v, nil
}

func (s *memPackSink) CurrentVolumeOffset() int64 {
	if s.current == nil {
		return 0
	}
	return s.current.pos
}

func (s *memPackSink) Finalize(manifest *dzconfig.Manifest) error {
	s.manifestOut = manifest
	return nil
}
