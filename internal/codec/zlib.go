package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// zlibCodec implements the ZLIB chunk flag, which despite its name
// stores a raw DEFLATE stream (no zlib or gzip wrapper) — the chunk
// table's decompressed length is the authoritative output size, so
// there is no container checksum to verify against.
var zlibCodec = Codec{
	Compress:   zlibCompress,
	Decompress: zlibDecompress,
}

func zlibCompress(decompressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, fmt.Errorf("zlib: new writer: %w", err)
	}
	if _, err := fw.Write(decompressed); err != nil {
		return nil, fmt.Errorf("zlib: write: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("zlib: close: %w", err)
	}
	return buf.Bytes(), nil
}

func zlibDecompress(compressed []byte, expectedLen int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(compressed))
	defer r.Close()

	out := make([]byte, expectedLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("zlib: decompress: %w", err)
	}
	return out[:n], nil
}
