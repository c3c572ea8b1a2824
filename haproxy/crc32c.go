package haproxy

import (
	"encoding/binary"
	"hash/crc32"
)

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// VerifyChecksum validates a PP2_TYPE_CRC32C TLV against msg's raw
// decoded bytes, adapted from the teacher's ChecksumCRC32c: zero the
// 4-byte checksum field, recompute CRC-32c over the whole header, and
// compare. Returns true when the record carries no checksum TLV at
// all (nothing to verify), matching the teacher's behavior for
// records that don't opt in to the checksum extension.
func VerifyChecksum(msg *Message) bool {
	if msg == nil || msg.Version != V2 || msg.Command != CmdProxy || len(msg.raw) == 0 {
		return true
	}

	offset := 16
	switch msg.ProxiedProtocol.AddressFamily() {
	case AFInet:
		offset += addressLengthIPv4
	case AFInet6:
		offset += addressLengthIPv6
	case AFUnix:
		offset += addressLengthUnix
	default:
		return true
	}

	raw := msg.raw
	length := len(raw)
	for offset < length {
		t := raw[offset]
		offset++
		if offset+2 > length {
			break
		}
		l := int(binary.BigEndian.Uint16(raw[offset : offset+2]))
		offset += 2

		if t == pp2TypeCRC32C {
			if offset+4 > length {
				return true
			}
			scratch := make([]byte, length)
			copy(scratch, raw)
			received := binary.BigEndian.Uint32(scratch[offset : offset+4])
			copy(scratch[offset:offset+4], []byte{0, 0, 0, 0})
			computed := crc32.Checksum(scratch, crc32cTable)
			return received == computed
		}
		offset += l
	}
	return true
}
