package pebblelog

import (
	"encoding/binary"
	"hash/crc32"
)

// Record encoding: varint headerLen | header | payload | crc32c(header|payload)
// The header optionally carries an 8-byte big-endian write timestamp (ms)
// consumed by retention trims and find-newest predicates, never by the log
// view itself.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// EncodeRecord frames header and payload into a single on-disk value.
func EncodeRecord(header, payload []byte) []byte {
	out := make([]byte, 0, 10+len(header)+len(payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], uint64(len(header)))
	out = append(out, tmp[:n]...)
	out = append(out, header...)
	out = append(out, payload...)

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

// Decoded holds the framed header/payload extracted by DecodeRecord.
type Decoded struct {
	Header  []byte
	Payload []byte
}

// DecodeRecord reverses EncodeRecord, verifying the trailing CRC.
func DecodeRecord(b []byte) (Decoded, bool) {
	if len(b) < 1+4 {
		return Decoded{}, false
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 {
		return Decoded{}, false
	}
	if int(n)+int(hlen)+4 > len(b) {
		return Decoded{}, false
	}
	header := b[n : n+int(hlen)]
	payload := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])
	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, payload)
	if crc != expect {
		return Decoded{}, false
	}
	return Decoded{
		Header:  append([]byte(nil), header...),
		Payload: append([]byte(nil), payload...),
	}, true
}

// HeaderTimestamp extracts an 8-byte big-endian millisecond timestamp from
// the front of header, if present.
func HeaderTimestamp(header []byte) (int64, bool) {
	if len(header) < 8 {
		return 0, false
	}
	return int64(binary.BigEndian.Uint64(header[:8])), true
}

// EncodeTimestampHeader builds an 8-byte big-endian header carrying ms.
func EncodeTimestampHeader(ms int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(ms))
	return b[:]
}
