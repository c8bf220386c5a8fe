package codec

import (
	"bytes"
	"compress/bzip2"
	"fmt"
	"io"

	dsnetbzip2 "github.com/dsnet/compress/bzip2"
)

// bzip2Codec implements the BZIP chunk flag. The standard library only
// ships a bzip2 reader, so compression uses dsnet/compress/bzip2 (the
// only bzip2 *writer* in the corpus); decompression stays on the
// standard library reader, which is the more battle-tested of the two.
var bzip2Codec = Codec{
	Compress:   bzip2Compress,
	Decompress: bzip2Decompress,
}

func bzip2Compress(decompressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := dsnetbzip2.NewWriter(&buf, nil)
	if err != nil {
		return nil, fmt.Errorf("bzip2: new writer: %w", err)
	}
	if _, err := w.Write(decompressed); err != nil {
		return nil, fmt.Errorf("bzip2: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("bzip2: close: %w", err)
	}
	return buf.Bytes(), nil
}

func bzip2Decompress(compressed []byte, expectedLen int) ([]byte, error) {
	r := bzip2.NewReader(bytes.NewReader(compressed))
	out := make([]byte, expectedLen)
	n, err := io.ReadFull(r, out)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("bzip2: decompress: %w", err)
	}
	return out[:n], nil
}
