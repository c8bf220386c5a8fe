package model

import "sort"

// ComputeEffectiveLengths recomputes each chunk's EffectiveCompressedLen
// from neighboring offsets within the same physical volume, since the
// chunk table's raw CompressedLength field is known to be unreliable in
// legacy archives. volumeLengths supplies the true byte length of each
// physical volume, used for the last chunk of each volume.
func ComputeEffectiveLengths(m *Model, volumeLengths []int64) {
	byVolume := make(map[int][]int)
	for i, c := range m.Chunks {
		byVolume[c.PhysicalVolume] = append(byVolume[c.PhysicalVolume], i)
	}

	for vol, indices := range byVolume {
		sort.Slice(indices, func(a, b int) bool {
			return m.Chunks[indices[a]].Offset < m.Chunks[indices[b]].Offset
		})
		for pos, ci := range indices {
			c := &m.Chunks[ci]
			var end int64
			if pos+1 < len(indices) {
				end = int64(m.Chunks[indices[pos+1]].Offset)
			} else if vol < len(volumeLengths) {
				end = volumeLengths[vol]
			} else {
				end = int64(c.Offset) + int64(c.RawCompressedLen)
			}
			c.EffectiveCompressedLen = uint32(end - int64(c.Offset))
		}
	}
}
