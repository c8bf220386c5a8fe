package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/ulikunitz/xz/lzma"
)

// legacyHeaderSize is the 13-byte classic LZMA1 header: 5 bytes of
// properties (1 props byte + 4-byte little-endian dictionary size)
// followed by an 8-byte little-endian decompressed size, where
// 0xFFFFFFFFFFFFFFFF means "unknown".
const legacyHeaderSize = 13

const unknownSize = 0xFFFFFFFFFFFFFFFF

// lzmaCodec implements the LZMA chunk flag. Unlike CHD's header-less
// raw LZMA stream (see the teacher's decompressLZMA, which synthesizes
// a header), DZ stores the 13-byte legacy header as part of the chunk's
// compressed payload itself.
var lzmaCodec = Codec{
	Compress:   lzmaCompress,
	Decompress: lzmaDecompress,
}

func lzmaCompress(decompressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	cfg := lzma.WriterConfig{SizeInHeader: true, Size: int64(len(decompressed))}
	w, err := cfg.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("lzma: new writer: %w", err)
	}
	if _, err := w.Write(decompressed); err != nil {
		return nil, fmt.Errorf("lzma: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lzma: close: %w", err)
	}
	if buf.Len() < legacyHeaderSize {
		return nil, fmt.Errorf("lzma: writer produced short header")
	}
	return buf.Bytes(), nil
}

func lzmaDecompress(compressed []byte, expectedLen int) ([]byte, error) {
	if len(compressed) < legacyHeaderSize {
		return nil, fmt.Errorf("lzma: payload shorter than legacy header")
	}

	declaredSize := binary.LittleEndian.Uint64(compressed[5:13])

	r, err := lzma.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("lzma: new reader: %w", err)
	}

	if declaredSize == unknownSize {
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("lzma: decompress (unknown size): %w", err)
		}
		return out, nil
	}

	out := make([]byte, expectedLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("lzma: decompress: %w", err)
	}
	return out[:n], nil
}
