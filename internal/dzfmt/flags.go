package dzfmt

// Chunk flag bits, as set in ChunkRecord.Flags.
const (
	FlagCombuf       uint16 = 0x001
	FlagDZ           uint16 = 0x004
	FlagZlib         uint16 = 0x008
	FlagBzip         uint16 = 0x010
	FlagMP3          uint16 = 0x020
	FlagJPEG         uint16 = 0x040
	FlagZero         uint16 = 0x080
	FlagCopyComp     uint16 = 0x100
	FlagLZMA         uint16 = 0x200
	FlagRandomAccess uint16 = 0x400
)

// compressionMask is the union of all bits that name a compression
// algorithm (as opposed to COMBUF/RANDOMACCESS hints).
const compressionMask = FlagDZ | FlagZlib | FlagBzip | FlagMP3 | FlagJPEG | FlagZero | FlagCopyComp | FlagLZMA

// CompressionFlags returns just the bits of flags that name a
// compression algorithm, discarding the COMBUF/RANDOMACCESS hint bits.
func CompressionFlags(flags uint16) uint16 {
	return flags & compressionMask
}

// CompressionBit returns the single compression bit set in flags. It
// reports ok=false if zero or more than one compression bit is set,
// which the caller should surface as a BadChunkFlagsError.
func CompressionBit(flags uint16) (bit uint16, ok bool) {
	c := CompressionFlags(flags)
	if c == 0 || c&(c-1) != 0 {
		return 0, false
	}
	return c, true
}

// FlagName returns the canonical name of a single compression or hint
// bit, or "" if unrecognized.
func FlagName(flag uint16) string {
	switch flag {
	case FlagCombuf:
		return "COMBUF"
	case FlagDZ:
		return "DZ"
	case FlagZlib:
		return "ZLIB"
	case FlagBzip:
		return "BZIP"
	case FlagMP3:
		return "MP3"
	case FlagJPEG:
		return "JPEG"
	case FlagZero:
		return "ZERO"
	case FlagCopyComp:
		return "COPYCOMP"
	case FlagLZMA:
		return "LZMA"
	case FlagRandomAccess:
		return "RANDOMACCESS"
	default:
		return ""
	}
}

// FlagNames decomposes a flags bitfield into its set bit names, in
// ascending bit order.
func FlagNames(flags uint16) []string {
	var names []string
	for bit := uint16(1); bit != 0 && bit <= FlagRandomAccess; bit <<= 1 {
		if flags&bit != 0 {
			if name := FlagName(bit); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// decoderSettingsSize returns the number of opaque bytes the per-decoder
// settings section carries for a given compression bit. Only the
// range-coder (DZ) codec has a defined, non-empty block; every other
// codec's block is empty.
func decoderSettingsSize(compressionBit uint16) int {
	if compressionBit == FlagDZ {
		return RangeCoderSettingsSize
	}
	return 0
}
