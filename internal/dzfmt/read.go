package dzfmt

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sargunv/dzarchive/internal/dzerr"
)

const headerSize = 9

// Parse decodes a full DZ archive's header and index tables from r,
// which must start at the archive's first byte. Parse stops after the
// decoder settings blocks and ignores any bytes that follow (chunk
// payload bytes are read separately by internal/pipeline, keyed by the
// offsets recorded in the returned Chunks table).
//
// Parse does not validate cross-table invariants (I1-I6); that is
// internal/model's job, since Parse alone cannot tell a structurally
// well-formed-but-semantically-corrupt archive from a truncated read of
// a fine one.
func Parse(r io.Reader) (*Archive, error) {
	br := bufio.NewReader(r)

	hdr, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	userFiles, err := readStringTable(br, int(hdr.NumUserFiles))
	if err != nil {
		return nil, fmt.Errorf("user file table: %w", err)
	}

	directories, err := readStringTable(br, int(hdr.NumDirectories))
	if err != nil {
		return nil, fmt.Errorf("directory table: %w", err)
	}

	mapping, err := readMapping(br, int(hdr.NumUserFiles))
	if err != nil {
		return nil, fmt.Errorf("mapping stream: %w", err)
	}

	settings, err := readChunkSettings(br)
	if err != nil {
		return nil, fmt.Errorf("chunk settings: %w", err)
	}

	chunks, err := readChunkTable(br, int(settings.NumChunks))
	if err != nil {
		return nil, fmt.Errorf("chunk table: %w", err)
	}
	for i, c := range chunks {
		if _, ok := CompressionBit(c.Flags); !ok {
			return nil, &dzerr.BadChunkFlagsError{ChunkID: i, Flags: c.Flags}
		}
	}

	var numVolumeNames int
	if settings.NumArchiveFiles > 0 {
		numVolumeNames = int(settings.NumArchiveFiles) - 1
	}
	volumeNames, err := readStringTable(br, numVolumeNames)
	if err != nil {
		return nil, fmt.Errorf("volume name table: %w", err)
	}

	decoderSettings, err := readDecoderSettings(br, chunks)
	if err != nil {
		return nil, fmt.Errorf("decoder settings: %w", err)
	}

	return &Archive{
		Header:          *hdr,
		UserFiles:       userFiles,
		Directories:     directories,
		Mapping:         mapping,
		ChunkSettings:   *settings,
		Chunks:          chunks,
		VolumeNames:     volumeNames,
		DecoderSettings: decoderSettings,
	}, nil
}

func readHeader(br *bufio.Reader) (*Header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("%w: header: %w", dzerr.ErrTruncated, err)
	}

	var h Header
	copy(h.Magic[:], buf[0:4])
	if h.Magic != Magic {
		return nil, fmt.Errorf("%w: got %q", dzerr.ErrBadMagic, h.Magic[:])
	}

	h.NumUserFiles = binary.LittleEndian.Uint16(buf[4:6])
	h.NumDirectories = binary.LittleEndian.Uint16(buf[6:8])
	h.Version = buf[8]
	if h.Version != SupportedVersion {
		return nil, fmt.Errorf("%w: %d", dzerr.ErrUnsupportedVersion, h.Version)
	}

	return &h, nil
}

func readStringTable(br *bufio.Reader, count int) ([]string, error) {
	if count <= 0 {
		return nil, nil
	}
	out := make([]string, count)
	for i := range out {
		s, err := readNullTerminated(br)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// readMapping consumes the flat u16 mapping stream: for each of
// numUserFiles entries, one directory index followed by chunk indices
// terminated by 0xFFFF.
func readMapping(br *bufio.Reader, numUserFiles int) ([]FileMapping, error) {
	out := make([]FileMapping, numUserFiles)
	for i := range out {
		dirIdx, err := readUint16(br)
		if err != nil {
			return nil, fmt.Errorf("file %d directory index: %w", i, err)
		}
		out[i].DirectoryIndex = dirIdx

		for {
			v, err := readUint16(br)
			if err != nil {
				return nil, fmt.Errorf("file %d chunk refs: %w", i, err)
			}
			if v == 0xFFFF {
				break
			}
			out[i].ChunkRefs = append(out[i].ChunkRefs, v)
		}
	}
	return out, nil
}

func readChunkSettings(br *bufio.Reader) (*ChunkSettings, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", dzerr.ErrTruncated, err)
	}
	return &ChunkSettings{
		NumArchiveFiles: binary.LittleEndian.Uint16(buf[0:2]),
		NumChunks:       binary.LittleEndian.Uint16(buf[2:4]),
	}, nil
}

func readChunkTable(br *bufio.Reader, numChunks int) ([]ChunkRecord, error) {
	if numChunks <= 0 {
		return nil, nil
	}
	buf := make([]byte, ChunkRecordSize)
	out := make([]ChunkRecord, numChunks)
	for i := range out {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %w", dzerr.ErrTruncated, i, err)
		}
		out[i] = ChunkRecord{
			Offset:             binary.LittleEndian.Uint32(buf[0:4]),
			CompressedLength:   binary.LittleEndian.Uint32(buf[4:8]),
			DecompressedLength: binary.LittleEndian.Uint32(buf[8:12]),
			Flags:              binary.LittleEndian.Uint16(buf[12:14]),
			File:               binary.LittleEndian.Uint16(buf[14:16]),
		}
	}
	return out, nil
}

// readDecoderSettings reads the per-decoder settings blocks in
// first-occurrence order of each chunk's compression bit. Every codec
// other than the range coder (FlagDZ) has an empty block.
func readDecoderSettings(br *bufio.Reader, chunks []ChunkRecord) ([]DecoderSettingsBlock, error) {
	seen := make(map[uint16]bool)
	var order []uint16
	for _, c := range chunks {
		bit, ok := CompressionBit(c.Flags)
		if !ok {
			continue // already reported by the caller
		}
		if !seen[bit] {
			seen[bit] = true
			order = append(order, bit)
		}
	}

	blocks := make([]DecoderSettingsBlock, 0, len(order))
	for _, bit := range order {
		size := decoderSettingsSize(bit)
		if size == 0 {
			blocks = append(blocks, DecoderSettingsBlock{Flag: bit})
			continue
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(br, data); err != nil {
			return nil, fmt.Errorf("%w: settings for flag 0x%04x: %w", dzerr.ErrTruncated, bit, err)
		}
		blocks = append(blocks, DecoderSettingsBlock{Flag: bit, Data: data})
	}
	return blocks, nil
}

func readUint16(br *bufio.Reader) (uint16, error) {
	buf := make([]byte, 2)
	if _, err := io.ReadFull(br, buf); err != nil {
		return 0, fmt.Errorf("%w: %w", dzerr.ErrTruncated, err)
	}
	return binary.LittleEndian.Uint16(buf), nil
}
