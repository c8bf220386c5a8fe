package dzfmt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sargunv/dzarchive/internal/dzerr"
)

func sampleArchive() *Archive {
	return &Archive{
		Header:      Header{Magic: Magic, NumUserFiles: 2, NumDirectories: 1, Version: SupportedVersion},
		UserFiles:   []string{"hero.png", "level1.dat"},
		Directories: []string{"assets"},
		Mapping: []FileMapping{
			{DirectoryIndex: 0, ChunkRefs: []uint16{0}},
			{DirectoryIndex: 0, ChunkRefs: []uint16{1, 2}},
		},
		ChunkSettings: ChunkSettings{NumArchiveFiles: 1, NumChunks: 3},
		Chunks: []ChunkRecord{
			{Offset: 0, CompressedLength: 10, DecompressedLength: 100, Flags: FlagZlib, File: 0},
			{Offset: 10, CompressedLength: 20, DecompressedLength: 200, Flags: FlagBzip, File: 0},
			{Offset: 30, CompressedLength: 5, DecompressedLength: 5, Flags: FlagCopyComp, File: 0},
		},
	}
}

func TestWriteParseRoundTrip(t *testing.T) {
	a := sampleArchive()

	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if buf.Len() != Size(a) {
		t.Fatalf("Write() produced %d bytes, Size() predicted %d", buf.Len(), Size(a))
	}

	got, err := Parse(&buf)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got.Header != a.Header {
		t.Errorf("Header = %+v, want %+v", got.Header, a.Header)
	}
	if len(got.UserFiles) != len(a.UserFiles) || got.UserFiles[0] != a.UserFiles[0] || got.UserFiles[1] != a.UserFiles[1] {
		t.Errorf("UserFiles = %v, want %v", got.UserFiles, a.UserFiles)
	}
	if len(got.Directories) != 1 || got.Directories[0] != "assets" {
		t.Errorf("Directories = %v, want [assets]", got.Directories)
	}
	if len(got.Mapping) != 2 || len(got.Mapping[1].ChunkRefs) != 2 {
		t.Fatalf("Mapping = %+v, want file 1 to reference 2 chunks", got.Mapping)
	}
	if len(got.Chunks) != 3 || got.Chunks[1].Flags != FlagBzip {
		t.Errorf("Chunks = %+v, want chunk 1 flagged BZIP", got.Chunks)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("XXXX")
	buf.Write([]byte{0, 0, 0, 0, 0})
	_, err := Parse(buf)
	if !errors.Is(err, dzerr.ErrBadMagic) {
		t.Fatalf("Parse() error = %v, want dzerr.ErrBadMagic", err)
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	buf := bytes.NewBuffer(append([]byte("DTRZ"), 0, 0, 0, 0, 7))
	_, err := Parse(buf)
	if !errors.Is(err, dzerr.ErrUnsupportedVersion) {
		t.Fatalf("Parse() error = %v, want dzerr.ErrUnsupportedVersion", err)
	}
}

func TestParseRejectsTruncatedHeader(t *testing.T) {
	buf := bytes.NewBufferString("DTR")
	_, err := Parse(buf)
	if !errors.Is(err, dzerr.ErrTruncated) {
		t.Fatalf("Parse() error = %v, want dzerr.ErrTruncated", err)
	}
}

func TestParseRejectsBadChunkFlags(t *testing.T) {
	a := sampleArchive()
	a.Chunks[0].Flags = FlagZlib | FlagBzip

	var buf bytes.Buffer
	if err := Write(&buf, a); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	_, err := Parse(&buf)
	var bad *dzerr.BadChunkFlagsError
	if !errors.As(err, &bad) {
		t.Fatalf("Parse() error = %v, want *dzerr.BadChunkFlagsError", err)
	}
	if bad.ChunkID != 0 {
		t.Errorf("ChunkID = %d, want 0", bad.ChunkID)
	}
}

func TestFlagNamesAndCompressionBit(t *testing.T) {
	tests := []struct {
		name    string
		flags   uint16
		want    []string
		wantBit uint16
		wantOK  bool
	}{
		{name: "solo zlib", flags: FlagZlib, want: []string{"ZLIB"}, wantBit: FlagZlib, wantOK: true},
		{name: "combuf + lzma", flags: FlagCombuf | FlagLZMA, want: []string{"COMBUF", "LZMA"}, wantBit: FlagLZMA, wantOK: true},
		{name: "no compression bit", flags: FlagRandomAccess, want: []string{"RANDOMACCESS"}, wantBit: 0, wantOK: false},
		{name: "two compression bits", flags: FlagZlib | FlagBzip, want: []string{"ZLIB", "BZIP"}, wantBit: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FlagNames(tt.flags); !equalStrings(got, tt.want) {
				t.Errorf("FlagNames() = %v, want %v", got, tt.want)
			}
			bit, ok := CompressionBit(tt.flags)
			if ok != tt.wantOK || (ok && bit != tt.wantBit) {
				t.Errorf("CompressionBit() = (0x%04x, %v), want (0x%04x, %v)", bit, ok, tt.wantBit, tt.wantOK)
			}
		})
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
