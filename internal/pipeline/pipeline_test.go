package pipeline

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/sargunv/dzarchive/internal/codec"
	"github.com/sargunv/dzarchive/internal/dzconfig"
	"github.com/sargunv/dzarchive/internal/dzerr"
	"github.com/sargunv/dzarchive/internal/dzfmt"
	"github.com/sargunv/dzarchive/internal/progress"
)

// buildVolume0 serializes archive's header+tables via dzfmt.Write and
// appends payload immediately after, returning the resulting volume 0
// bytes and the offset payload starts at.
func buildVolume0(t *testing.T, archive *dzfmt.Archive, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := dzfmt.Write(&buf, archive); err != nil {
		t.Fatalf("dzfmt.Write() error = %v", err)
	}
	buf.Write(payload)
	return buf.Bytes()
}

func TestUnpackSingleZlibChunk(t *testing.T) {
	payload := []byte("hello world, this is a dz archive test payload used across several test cases")
	zlib, _ := codec.Lookup(dzfmt.FlagZlib)
	compressed, err := zlib.Compress(payload)
	if err != nil {
		t.Fatalf("Compress() error = %v", err)
	}

	archive := &dzfmt.Archive{
		Header:      dzfmt.Header{Magic: dzfmt.Magic, NumUserFiles: 1, NumDirectories: 1},
		UserFiles:   []string{"hello.txt"},
		Directories: []string{"docs"},
		Mapping: []dzfmt.FileMapping{
			{DirectoryIndex: 0, ChunkRefs: []uint16{0}},
		},
		ChunkSettings: dzfmt.ChunkSettings{NumArchiveFiles: 1, NumChunks: 1},
		Chunks: []dzfmt.ChunkRecord{
			{
				CompressedLength:   uint32(len(compressed)),
				DecompressedLength: uint32(len(payload)),
				Flags:              dzfmt.FlagZlib,
			},
		},
	}
	archive.Chunks[0].Offset = uint32(dzfmt.Size(archive))

	vol0 := buildVolume0(t, archive, compressed)
	src := &memUnpackSource{volumes: [][]byte{vol0}}
	sink := newMemUnpackSink()

	manifest, err := Unpack(context.Background(), src, sink, progress.Nop, UnpackOptions{})
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	got, ok := sink.files["docs/hello.txt"]
	if !ok {
		t.Fatalf("file %q not written, have %v", "docs/hello.txt", sink.files)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("file contents = %q, want %q", got, payload)
	}
	if !sink.dirs["docs"] {
		t.Errorf("directory %q not created", "docs")
	}

	if len(manifest.Chunks) != 1 || len(manifest.Chunks[0].Flags) != 1 || manifest.Chunks[0].Flags[0] != "ZLIB" {
		t.Errorf("manifest.Chunks = %+v, want single ZLIB chunk", manifest.Chunks)
	}
}

func TestUnpackCombufConcatenation(t *testing.T) {
	chunkA, _ := codec.Lookup(dzfmt.FlagCopyComp)
	payloadA, _ := chunkA.Compress([]byte("AAAA"))
	payloadB, _ := chunkA.Compress([]byte("BBBB"))

	archive := &dzfmt.Archive{
		Header:      dzfmt.Header{Magic: dzfmt.Magic, NumUserFiles: 3, NumDirectories: 1},
		UserFiles:   []string{"a.bin", "b.bin", "c.bin"},
		Directories: []string{"combuf"},
		Mapping: []dzfmt.FileMapping{
			{DirectoryIndex: 0, ChunkRefs: []uint16{0}},
			{DirectoryIndex: 0, ChunkRefs: []uint16{0, 1}},
			{DirectoryIndex: 0, ChunkRefs: []uint16{1}},
		},
		ChunkSettings: dzfmt.ChunkSettings{NumArchiveFiles: 1, NumChunks: 2},
		Chunks: []dzfmt.ChunkRecord{
			{CompressedLength: 4, DecompressedLength: 4, Flags: dzfmt.FlagCombuf | dzfmt.FlagCopyComp},
			{CompressedLength: 4, DecompressedLength: 4, Flags: dzfmt.FlagCombuf | dzfmt.FlagCopyComp},
		},
	}
	base := uint32(dzfmt.Size(archive))
	archive.Chunks[0].Offset = base
	archive.Chunks[1].Offset = base + 4

	var buf bytes.Buffer
	if err := dzfmt.Write(&buf, archive); err != nil {
		t.Fatalf("dzfmt.Write() error = %v", err)
	}
	buf.Write(payloadA)
	buf.Write(payloadB)

	src := &memUnpackSource{volumes: [][]byte{buf.Bytes()}}
	sink := newMemUnpackSink()

	if _, err := Unpack(context.Background(), src, sink, progress.Nop, UnpackOptions{}); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	if got := string(sink.files["combuf/a.bin"]); got != "AA" {
		t.Errorf("a.bin = %q, want %q", got, "AA")
	}
	if got := string(sink.files["combuf/b.bin"]); got != "AABB" {
		t.Errorf("b.bin = %q, want %q", got, "AABB")
	}
	if got := string(sink.files["combuf/c.bin"]); got != "BB" {
		t.Errorf("c.bin = %q, want %q", got, "BB")
	}
}

func TestUnpackKeepRawUnsupportedCodec(t *testing.T) {
	archive := &dzfmt.Archive{
		Header:      dzfmt.Header{Magic: dzfmt.Magic, NumUserFiles: 1, NumDirectories: 1},
		UserFiles:   []string{"track.mp3"},
		Directories: []string{"audio"},
		Mapping: []dzfmt.FileMapping{
			{DirectoryIndex: 0, ChunkRefs: []uint16{0}},
		},
		ChunkSettings: dzfmt.ChunkSettings{NumArchiveFiles: 1, NumChunks: 1},
		Chunks: []dzfmt.ChunkRecord{
			{CompressedLength: 8, DecompressedLength: 8, Flags: dzfmt.FlagMP3},
		},
	}
	archive.Chunks[0].Offset = uint32(dzfmt.Size(archive))
	raw := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	vol0 := buildVolume0(t, archive, raw)

	t.Run("without keep_raw fails", func(t *testing.T) {
		src := &memUnpackSource{volumes: [][]byte{vol0}}
		sink := newMemUnpackSink()
		_, err := Unpack(context.Background(), src, sink, progress.Nop, UnpackOptions{})
		var unsupported *dzerr.UnsupportedCodecError
		if !errors.As(err, &unsupported) {
			t.Fatalf("Unpack() error = %v, want *dzerr.UnsupportedCodecError", err)
		}
	})

	t.Run("with keep_raw writes sidecar", func(t *testing.T) {
		src := &memUnpackSource{volumes: [][]byte{vol0}}
		sink := newMemUnpackSink()
		_, err := Unpack(context.Background(), src, sink, progress.Nop, UnpackOptions{KeepRaw: true})
		if err != nil {
			t.Fatalf("Unpack() error = %v", err)
		}
		sidecar, ok := sink.files[".raw_chunks/00000.bin"]
		if !ok {
			t.Fatalf("sidecar not written, have %v", sink.files)
		}
		if !bytes.Equal(sidecar, raw) {
			t.Errorf("sidecar contents = %v, want %v", sidecar, raw)
		}
		if got := sink.files["audio/track.mp3"]; len(got) != 8 {
			t.Errorf("len(track.mp3) = %d, want 8 zero bytes", len(got))
		}
	})
}

func TestUnpackCancellation(t *testing.T) {
	archive := &dzfmt.Archive{
		Header:      dzfmt.Header{Magic: dzfmt.Magic, NumUserFiles: 1, NumDirectories: 1},
		UserFiles:   []string{"a.bin"},
		Directories: []string{""},
		Mapping: []dzfmt.FileMapping{
			{DirectoryIndex: 0, ChunkRefs: []uint16{0}},
		},
		ChunkSettings: dzfmt.ChunkSettings{NumArchiveFiles: 1, NumChunks: 1},
		Chunks: []dzfmt.ChunkRecord{
			{CompressedLength: 4, DecompressedLength: 4, Flags: dzfmt.FlagZero},
		},
	}
	archive.Chunks[0].Offset = uint32(dzfmt.Size(archive))
	vol0 := buildVolume0(t, archive, nil)

	src := &memUnpackSource{volumes: [][]byte{vol0}}
	sink := newMemUnpackSink()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Unpack(ctx, src, sink, progress.Nop, UnpackOptions{})
	if !errors.Is(err, dzerr.ErrCancelled) {
		t.Fatalf("Unpack() error = %v, want dzerr.ErrCancelled", err)
	}
}

func TestPackThenUnpackRoundTrip(t *testing.T) {
	payload := []byte("round trip payload bytes for the packed and then unpacked archive")

	manifest := &dzconfig.Manifest{
		Version:        0,
		NumUserFiles:   1,
		NumDirectories: 1,
		Files: []dzconfig.FileRecord{
			{LogicalPath: "docs/hello.txt", Directory: "docs", Filename: "hello.txt", ChunkRefs: []int{0}},
		},
		Chunks: []dzconfig.ChunkRecord{
			{ID: 0, SizeDecompressed: uint32(len(payload)), Flags: []string{"ZLIB"}},
		},
	}

	packSrc := &memPackSource{files: map[string][]byte{"docs/hello.txt": payload}}
	packSink := &memPackSink{}

	if err := Pack(context.Background(), manifest, packSrc, packSink, progress.Nop, PackOptions{}); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	if packSink.manifestOut == nil {
		t.Fatalf("Finalize() was not called with a manifest")
	}

	unpackSrc := &memUnpackSource{volumes: [][]byte{packSink.volumes[0].data}}
	unpackSink := newMemUnpackSink()

	if _, err := Unpack(context.Background(), unpackSrc, unpackSink, progress.Nop, UnpackOptions{}); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}

	got, ok := unpackSink.files["docs/hello.txt"]
	if !ok {
		t.Fatalf("round-tripped file missing, have %v", unpackSink.files)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round-tripped contents = %q, want %q", got, payload)
	}
}

func TestPackRollsOverVolumesPastSplitThreshold(t *testing.T) {
	first := bytes.Repeat([]byte("a"), 40)
	second := bytes.Repeat([]byte("b"), 40)

	manifest := &dzconfig.Manifest{
		Version:        0,
		NumUserFiles:   2,
		NumDirectories: 1,
		VolumeNames:    []string{".d01"},
		Files: []dzconfig.FileRecord{
			{LogicalPath: "a.bin", Directory: "", Filename: "a.bin", ChunkRefs: []int{0}},
			{LogicalPath: "b.bin", Directory: "", Filename: "b.bin", ChunkRefs: []int{1}},
		},
		Chunks: []dzconfig.ChunkRecord{
			{ID: 0, SizeDecompressed: uint32(len(first)), Flags: []string{"COPYCOMP"}},
			{ID: 1, SizeDecompressed: uint32(len(second)), Flags: []string{"COPYCOMP"}},
		},
	}

	packSrc := &memPackSource{files: map[string][]byte{"a.bin": first, "b.bin": second}}
	packSink := &memPackSink{}

	if err := Pack(context.Background(), manifest, packSrc, packSink, progress.Nop, PackOptions{SplitBytes: 20}); err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	if len(packSink.volumes) < 2 || packSink.volumes[1] == nil {
		t.Fatalf("expected a rolled-over second volume, got %d volumes", len(packSink.volumes))
	}
	if len(packSink.volumes[1].data) == 0 {
		t.Errorf("second volume is empty")
	}
}

func TestPackCancellation(t *testing.T) {
	manifest := &dzconfig.Manifest{
		Version:        0,
		NumUserFiles:   1,
		NumDirectories: 1,
		Files: []dzconfig.FileRecord{
			{LogicalPath: "a.bin", Directory: "", Filename: "a.bin", ChunkRefs: []int{0}},
		},
		Chunks: []dzconfig.ChunkRecord{
			{ID: 0, SizeDecompressed: 4, Flags: []string{"COPYCOMP"}},
		},
	}

	packSrc := &memPackSource{files: map[string][]byte{"a.bin": []byte("data")}}
	packSink := &memPackSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Pack(ctx, manifest, packSrc, packSink, progress.Nop, PackOptions{})
	if !errors.Is(err, dzerr.ErrCancelled) {
		t.Fatalf("Pack() error = %v, want dzerr.ErrCancelled", err)
	}
}
