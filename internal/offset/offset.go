// Package offset implements the Offset Mapper (C2): the pure functions that
// translate between logical file offsets and backend (per-subvolume)
// offsets, decompose a logical byte range into per-stripe chunks, and
// reconcile a reported backend size into the authoritative logical size
// (spec §4.2). Nothing here touches a subvolume; every function is
// deterministic given S (stripe size) and N (stripe count).
package offset

// Owner returns the subvolume index that owns the byte at logical offset
// off (spec P1: owner(off) == (off / S) mod N).
func Owner(off, stripeSize int64, stripeCount int32) int {
	return int(((off / stripeSize) % int64(stripeCount) + int64(stripeCount)) % int64(stripeCount))
}

// LineSize is the repeating unit of the stripe pattern: S * N.
func LineSize(stripeSize int64, stripeCount int32) int64 {
	return stripeSize * int64(stripeCount)
}

// CoalescedOffset maps a logical offset to its backend offset under the
// coalesced layout (spec §4.2, §6.1).
func CoalescedOffset(off, stripeSize int64, stripeCount int32) int64 {
	line := LineSize(stripeSize, stripeCount)
	return (off/line)*stripeSize + off%stripeSize
}

// BackendOffset maps a logical offset to its backend offset under the
// layout selected by coalesce (spec §6.1: sparse keeps the logical offset
// unchanged; coalesced packs each subvolume's owned bytes contiguously).
func BackendOffset(off, stripeSize int64, stripeCount int32, coalesce bool) int64 {
	if coalesce {
		return CoalescedOffset(off, stripeSize, stripeCount)
	}
	return off
}

func floorTo(v, unit int64) int64 {
	return (v / unit) * unit
}

func ceilTo(v, unit int64) int64 {
	if v%unit == 0 {
		return v
	}
	return floorTo(v, unit) + unit
}

// FloorTo and CeilTo are exported so callers (fanout, heal) can round
// offsets to a stripe or stripe-line boundary without duplicating the
// arithmetic.
func FloorTo(v, unit int64) int64 { return floorTo(v, unit) }
func CeilTo(v, unit int64) int64  { return ceilTo(v, unit) }

// Chunk is one per-subvolume piece of a decomposed logical range (spec
// §4.2 "Range decomposition").
type Chunk struct {
	Subvolume     int
	LogicalStart  int64
	LogicalEnd    int64
	BackendOffset int64
}

// Len is the chunk's logical length in bytes.
func (c Chunk) Len() int64 { return c.LogicalEnd - c.LogicalStart }

// Decompose splits the logical range [off, off+length) into the ordered
// per-stripe chunks covering it, in stripe order (spec §4.2).
func Decompose(off, length, stripeSize int64, stripeCount int32, coalesce bool) []Chunk {
	if length <= 0 {
		return nil
	}
	end := off + length
	roundedStart := floorTo(off, stripeSize)
	roundedEnd := ceilTo(end, stripeSize)
	numChunks := (roundedEnd - roundedStart) / stripeSize

	chunks := make([]Chunk, 0, numChunks)
	startOwner := off / stripeSize
	for k := int64(0); k < numChunks; k++ {
		chunkLogicalStart := roundedStart + k*stripeSize
		chunkLogicalEnd := chunkLogicalStart + stripeSize
		logicalStart := max64(off, chunkLogicalStart)
		logicalEnd := min64(end, chunkLogicalEnd)
		if logicalStart >= logicalEnd {
			continue
		}
		subvolIdx := int(((startOwner+k)%int64(stripeCount) + int64(stripeCount)) % int64(stripeCount))
		backendOff := BackendOffset(logicalStart, stripeSize, stripeCount, coalesce)
		chunks = append(chunks, Chunk{
			Subvolume:     subvolIdx,
			LogicalStart:  logicalStart,
			LogicalEnd:    logicalEnd,
			BackendOffset: backendOff,
		})
	}
	return chunks
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// ReconcileSize recovers the logical file size from one subvolume's
// reported backend size and stripe-index, under the coalesced layout
// (spec §4.2 "Size reconciliation", P5). Callers take the maximum across
// all subvolumes' reconciled sizes as the authoritative logical size.
func ReconcileSize(reportedSize, stripeSize int64, stripeCount int32, index int32) int64 {
	fullChunks := (reportedSize / stripeSize) * int64(stripeCount)
	if reportedSize%stripeSize == 0 {
		return (fullChunks - (int64(stripeCount) - int64(index) - 1)) * stripeSize
	}
	return fullChunks*stripeSize + int64(index)*stripeSize + reportedSize%stripeSize
}

// TruncateTarget resolves the per-subvolume backend truncate length for a
// logical truncation to size T (spec §4.2 "Truncate target resolution").
func TruncateTarget(t, stripeSize int64, stripeCount int32, coalesce bool, subvolIndex int32) int64 {
	line := LineSize(stripeSize, stripeCount)
	eofIdx := int32(((t/stripeSize)%int64(stripeCount) + int64(stripeCount)) % int64(stripeCount))

	var logical int64
	switch {
	case subvolIndex < eofIdx:
		logical = ceilTo(t, line)
	case subvolIndex == eofIdx:
		logical = t
	default:
		logical = floorTo(t, line)
	}
	return BackendOffset(logical, stripeSize, stripeCount, coalesce)
}
