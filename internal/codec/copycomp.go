package codec

// copyCompCodec implements the COPYCOMP (store) chunk flag: the payload
// is the decompressed bytes verbatim, no transformation applied.
var copyCompCodec = Codec{
	Compress: func(decompressed []byte) ([]byte, error) {
		out := make([]byte, len(decompressed))
		copy(out, decompressed)
		return out, nil
	},
	Decompress: func(compressed []byte, expectedLen int) ([]byte, error) {
		out := make([]byte, expectedLen)
		copy(out, compressed)
		return out, nil
	},
}
