// Package dzconfig defines the TOML manifest emitted by unpack and
// consumed by pack: everything needed to rebuild an archive with the same
// file, directory, mapping and chunk tables from its extracted files
// (chunks are recompressed, so payload bytes and offsets may differ),
// plus the options a repack run needs
// that aren't recoverable from the files themselves.
package dzconfig

// FileRecord is one user file's manifest entry.
type FileRecord struct {
	LogicalPath string `toml:"logical_path"`
	Directory   string `toml:"directory"`
	Filename    string `toml:"filename"`
	ChunkRefs   []int  `toml:"chunk_refs"`
}

// ChunkRecord is one chunk's manifest entry, including the untrusted
// legacy compressed-length field for diagnostics.
type ChunkRecord struct {
	ID                int      `toml:"id"`
	Offset            uint32   `toml:"offset"`
	SizeCompressed    uint32   `toml:"size_compressed"`
	SizeDecompressed  uint32   `toml:"size_decompressed"`
	Flags             []string `toml:"flags"`
	ArchiveFileIndex  int      `toml:"archive_file_index"`
	RawSizeCompressed uint32   `toml:"raw_size_compressed"`
}

// PackOptions carries the knobs a repack run needs that have no
// counterpart in the extracted files themselves.
type PackOptions struct {
	SplitBytes int64 `toml:"split_bytes"`
	KeepRaw    bool  `toml:"keep_raw"`
}

// Manifest is the full TOML document written by unpack and read by pack.
type Manifest struct {
	Version        uint8         `toml:"version"`
	NumUserFiles   int           `toml:"num_user_files"`
	NumDirectories int           `toml:"num_directories"`
	VolumeNames    []string      `toml:"volume_names"`
	Files          []FileRecord  `toml:"files"`
	Chunks         []ChunkRecord `toml:"chunks"`
	Pack           PackOptions   `toml:"pack"`
}
