package dzconfig

import (
	"path/filepath"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	m := &Manifest{
		Version:        0,
		NumUserFiles:   2,
		NumDirectories: 1,
		VolumeNames:    []string{".d01"},
		Files: []FileRecord{
			{LogicalPath: "assets/hero.png", Directory: "assets", Filename: "hero.png", ChunkRefs: []int{0}},
			{LogicalPath: "assets/level1.dat", Directory: "assets", Filename: "level1.dat", ChunkRefs: []int{1, 2}},
		},
		Chunks: []ChunkRecord{
			{ID: 0, Offset: 9, SizeCompressed: 40, SizeDecompressed: 100, Flags: []string{"ZLIB"}},
			{ID: 1, Offset: 49, SizeCompressed: 30, SizeDecompressed: 90, Flags: []string{"COMBUF", "BZIP"}, ArchiveFileIndex: 1},
		},
		Pack: PackOptions{SplitBytes: 1 << 20, KeepRaw: true},
	}

	path := filepath.Join(t.TempDir(), "manifest.toml")
	if err := Save(path, m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got.Version != m.Version || got.NumUserFiles != m.NumUserFiles || got.NumDirectories != m.NumDirectories {
		t.Errorf("scalar fields = %+v, want matching %+v", got, m)
	}
	if len(got.VolumeNames) != 1 || got.VolumeNames[0] != ".d01" {
		t.Errorf("VolumeNames = %v, want [.d01]", got.VolumeNames)
	}
	if len(got.Files) != 2 || got.Files[1].Filename != "level1.dat" || len(got.Files[1].ChunkRefs) != 2 {
		t.Fatalf("Files = %+v, want 2 records matching input", got.Files)
	}
	if len(got.Chunks) != 2 || got.Chunks[1].Flags[0] != "COMBUF" || got.Chunks[1].Flags[1] != "BZIP" {
		t.Fatalf("Chunks = %+v, want chunk 1 flagged [COMBUF BZIP]", got.Chunks)
	}
	if got.Pack.SplitBytes != 1<<20 || !got.Pack.KeepRaw {
		t.Errorf("Pack = %+v, want SplitBytes=1<<20 KeepRaw=true", got.Pack)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err == nil {
		t.Fatal("Load() error = nil, want error for missing file")
	}
}
