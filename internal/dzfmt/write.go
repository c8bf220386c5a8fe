package dzfmt

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Write serializes a fully-populated Archive (header, string tables,
// mapping stream, chunk settings, chunk table, volume names, and
// decoder settings blocks) to w, in the exact on-disk layout Parse
// reads back. It writes no chunk payload bytes.
func Write(w io.Writer, a *Archive) error {
	if err := writeHeader(w, a.Header); err != nil {
		return fmt.Errorf("header: %w", err)
	}
	if err := writeStringTable(w, a.UserFiles); err != nil {
		return fmt.Errorf("user file table: %w", err)
	}
	if err := writeStringTable(w, a.Directories); err != nil {
		return fmt.Errorf("directory table: %w", err)
	}
	if err := writeMapping(w, a.Mapping); err != nil {
		return fmt.Errorf("mapping stream: %w", err)
	}
	if err := writeChunkSettings(w, a.ChunkSettings); err != nil {
		return fmt.Errorf("chunk settings: %w", err)
	}
	if err := writeChunkTable(w, a.Chunks); err != nil {
		return fmt.Errorf("chunk table: %w", err)
	}
	if err := writeStringTable(w, a.VolumeNames); err != nil {
		return fmt.Errorf("volume name table: %w", err)
	}
	if err := writeDecoderSettings(w, a.DecoderSettings); err != nil {
		return fmt.Errorf("decoder settings: %w", err)
	}
	return nil
}

// Size returns the exact number of bytes Write would emit for a, without
// writing anything. The pack writer (internal/pipeline) calls this to
// reserve placeholder space for the header+tables region before any
// chunk payload is written, since that size depends only on string
// tables, the mapping stream, and chunk flags — never on compressed
// payload sizes.
func Size(a *Archive) int {
	n := headerSize
	n += stringTableSize(a.UserFiles)
	n += stringTableSize(a.Directories)
	n += mappingSize(a.Mapping)
	n += 4 // ChunkSettings
	n += len(a.Chunks) * ChunkRecordSize
	n += stringTableSize(a.VolumeNames)
	for _, b := range a.DecoderSettings {
		n += len(b.Data)
	}
	return n
}

func stringTableSize(strs []string) int {
	n := 0
	for _, s := range strs {
		n += len(s) + 1
	}
	return n
}

func mappingSize(mapping []FileMapping) int {
	n := 0
	for _, m := range mapping {
		n += 2               // directory index
		n += 2 * len(m.ChunkRefs)
		n += 2 // 0xFFFF terminator
	}
	return n
}

func writeHeader(w io.Writer, h Header) error {
	buf := make([]byte, headerSize)
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.NumUserFiles)
	binary.LittleEndian.PutUint16(buf[6:8], h.NumDirectories)
	buf[8] = h.Version
	_, err := w.Write(buf)
	return err
}

func writeStringTable(w io.Writer, strs []string) error {
	for i, s := range strs {
		if err := writeNullTerminated(w, s); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func writeMapping(w io.Writer, mapping []FileMapping) error {
	for i, m := range mapping {
		if err := writeUint16(w, m.DirectoryIndex); err != nil {
			return fmt.Errorf("file %d directory index: %w", i, err)
		}
		for _, ref := range m.ChunkRefs {
			if err := writeUint16(w, ref); err != nil {
				return fmt.Errorf("file %d chunk ref: %w", i, err)
			}
		}
		if err := writeUint16(w, 0xFFFF); err != nil {
			return fmt.Errorf("file %d terminator: %w", i, err)
		}
	}
	return nil
}

func writeChunkSettings(w io.Writer, s ChunkSettings) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint16(buf[0:2], s.NumArchiveFiles)
	binary.LittleEndian.PutUint16(buf[2:4], s.NumChunks)
	_, err := w.Write(buf)
	return err
}

func writeChunkTable(w io.Writer, chunks []ChunkRecord) error {
	buf := make([]byte, ChunkRecordSize)
	for i, c := range chunks {
		binary.LittleEndian.PutUint32(buf[0:4], c.Offset)
		binary.LittleEndian.PutUint32(buf[4:8], c.CompressedLength)
		binary.LittleEndian.PutUint32(buf[8:12], c.DecompressedLength)
		binary.LittleEndian.PutUint16(buf[12:14], c.Flags)
		binary.LittleEndian.PutUint16(buf[14:16], c.File)
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}
	return nil
}

func writeDecoderSettings(w io.Writer, blocks []DecoderSettingsBlock) error {
	for _, b := range blocks {
		if len(b.Data) == 0 {
			continue
		}
		if _, err := w.Write(b.Data); err != nil {
			return fmt.Errorf("flag 0x%04x: %w", b.Flag, err)
		}
	}
	return nil
}

func writeUint16(w io.Writer, v uint16) error {
	buf := make([]byte, 2)
	binary.LittleEndian.PutUint16(buf, v)
	_, err := w.Write(buf)
	return err
}
