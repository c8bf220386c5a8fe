// Package codec implements the flag-keyed compression codec registry: a
// map from a chunk's compression flag bit to a {Compress, Decompress}
// pair. ZERO is handled one level up by internal/pipeline
// (it synthesizes bytes rather than running a codec), and MP3/JPEG/DZ
// have no registered codec at all — encountering them is the pipeline's
// job to turn into an UnsupportedCodecError or a keep-raw sidecar.
package codec

import "github.com/sargunv/dzarchive/internal/dzfmt"

// Codec compresses and decompresses the payload of a single chunk.
// Decompress is told the expected decompressed length so implementations
// that need a fixed-size output buffer (LZMA's legacy framing) can use
// it directly.
type Codec struct {
	Compress   func(decompressed []byte) ([]byte, error)
	Decompress func(compressed []byte, expectedLen int) ([]byte, error)
}

// Registry is the flag bit -> Codec lookup table. Keys are single
// compression bits from internal/dzfmt (FlagZlib, FlagBzip, FlagLZMA,
// FlagCopyComp); ZERO, MP3, JPEG, and DZ are deliberately absent.
var Registry = map[uint16]Codec{
	dzfmt.FlagZlib:     zlibCodec,
	dzfmt.FlagBzip:     bzip2Codec,
	dzfmt.FlagLZMA:     lzmaCodec,
	dzfmt.FlagCopyComp: copyCompCodec,
}

// Lookup returns the codec registered for a single compression bit and
// whether one was found.
func Lookup(compressionBit uint16) (Codec, bool) {
	c, ok := Registry[compressionBit]
	return c, ok
}
