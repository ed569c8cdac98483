package pebblelog

import "encoding/binary"

// Keyspace layout (byte-wise, lexicographically sortable):
//
//	log/{name}/seg/{segment_be8}/m               (segment metadata; reserved, nothing is written here)
//	log/{name}/seg/{segment_be8}/e/{entry_be8}    (entries)
//	log/{name}/last                                (last written position)

var (
	logPrefix  = []byte("log/")
	segSeg     = []byte("/seg/")
	entrySeg   = []byte("/e/")
	metaSuffix = []byte("/m")
	lastSuffix = []byte("/last")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keySegmentMeta builds the per-segment metadata key.
func keySegmentMeta(name string, segment uint64) []byte {
	k := make([]byte, 0, len(name)+32)
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, segSeg...)
	k = appendBE8(k, segment)
	k = append(k, metaSuffix...)
	return k
}

// keyEntry builds the entry key for (segment, entry).
func keyEntry(name string, segment uint64, entry uint64) []byte {
	k := make([]byte, 0, len(name)+48)
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, segSeg...)
	k = appendBE8(k, segment)
	k = append(k, entrySeg...)
	k = appendBE8(k, entry)
	return k
}

// keySegmentEntryBounds returns the [low, high) key range covering every
// entry key in the given segment.
func keySegmentEntryBounds(name string, segment uint64) (low, high []byte) {
	low = keyEntry(name, segment, 0)
	high = keyEntry(name, segment, ^uint64(0))
	high = append(high, 0x00)
	return low, high
}

// keyLast builds the key storing the log's last written position.
func keyLast(name string) []byte {
	k := make([]byte, 0, len(name)+8)
	k = append(k, logPrefix...)
	k = append(k, name...)
	k = append(k, lastSuffix...)
	return k
}
