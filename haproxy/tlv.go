package haproxy

import (
	"encoding/binary"
	"fmt"

	"github.com/fango6/portentry/buf"
	"github.com/pkg/errors"
)

// TLVTag is the decoded meaning of a TLV's type byte. Every byte value
// maps to a tag; unrecognized or registered-but-uninteresting type
// bytes map to TLVOther, with the original byte preserved on the TLV
// itself so callers can still distinguish them (e.g. PP2_TYPE_CRC32C,
// PP2_TYPE_NOOP, or a vendor-private type used for a VPC endpoint id).
type TLVTag byte

const (
	TLVOther TLVTag = iota
	TLVALPN
	TLVAuthority
	TLVSSL
	TLVSSLVersion
	TLVSSLCN
	TLVNetNS
)

// Registered PP2 type bytes, per the HAProxy PROXY protocol spec.
const (
	pp2TypeALPN       byte = 0x01
	pp2TypeAuthority  byte = 0x02
	pp2TypeCRC32C     byte = 0x03
	pp2TypeNOOP       byte = 0x04
	pp2TypeUniqueID   byte = 0x05
	pp2TypeSSL        byte = 0x20
	pp2SubtypeVersion byte = 0x21
	pp2SubtypeCN      byte = 0x22
	pp2TypeNetNS      byte = 0x30
)

func tagForByte(b byte) TLVTag {
	switch b {
	case pp2TypeALPN:
		return TLVALPN
	case pp2TypeAuthority:
		return TLVAuthority
	case pp2TypeSSL:
		return TLVSSL
	case pp2SubtypeVersion:
		return TLVSSLVersion
	case pp2SubtypeCN:
		return TLVSSLCN
	case pp2TypeNetNS:
		return TLVNetNS
	default:
		return TLVOther
	}
}

// SSLInfo carries the fixed fields and nested TLVs encapsulated inside
// a PP2_TYPE_SSL TLV. It is the tagged-variant payload spec.md §9
// describes as "TLV = {Regular, Ssl{...}}": a plain TLV carries a nil
// SSL, an SSL TLV carries one.
type SSLInfo struct {
	Verify         int32
	ClientBitfield uint8
	Encapsulated   []TLV
	// RawContent is the SSL TLV's value, fixed fields included, owned
	// independently of the parent TLV's Content for callers that want
	// the whole encapsulated blob.
	RawContent *buf.RefBuf
}

const (
	ClientSSL      uint8 = 0x01
	ClientCertConn uint8 = 0x02
	ClientCertSess uint8 = 0x04
)

func (s *SSLInfo) ClientSSL() bool      { return s.ClientBitfield&ClientSSL != 0 }
func (s *SSLInfo) ClientCertConn() bool { return s.ClientBitfield&ClientCertConn != 0 }
func (s *SSLInfo) ClientCertSess() bool { return s.ClientBitfield&ClientCertSess != 0 }

// TLV is one Type-Length-Value record from a v2 header's TLV section.
// Content is owned by the TLV (retained/released alongside the
// carrying Message); SSL is non-nil only when Type == TLVSSL.
type TLV struct {
	Type    TLVTag
	RawByte byte
	Content *buf.RefBuf
	SSL     *SSLInfo
}

var (
	ErrTLVLengthTooShort = errors.New("haproxy: tlv length field truncated")
	ErrTLVValueTooShort  = errors.New("haproxy: tlv value shorter than declared length")
	ErrSSLTLVTooShort    = errors.New("haproxy: ssl tlv shorter than its fixed 5-byte prefix")
)

// parseTLVs walks a flat byte range as a sequence of type:u8 |
// length:u16BE | value[length] records. An SSL record's value is
// additionally split into its fixed 5-byte prefix and a recursively
// parsed tail; the returned list contains the SSL TLV immediately
// followed by its encapsulated children, flattened in order, matching
// spec.md §4.1's TLV lifecycle note.
func parseTLVs(raw *buf.RefBuf) ([]TLV, error) {
	data := raw.Bytes()
	var out []TLV
	cursor := 0
	for cursor < len(data) {
		tlv, consumed, err := parseOneTLV(raw, data, cursor)
		if err != nil {
			return nil, err
		}
		out = append(out, tlv)
		if tlv.SSL != nil {
			out = append(out, tlv.SSL.Encapsulated...)
		}
		cursor += consumed
	}
	return out, nil
}

func parseOneTLV(owner *buf.RefBuf, data []byte, cursor int) (TLV, int, error) {
	rawByte := data[cursor]
	if cursor+3 > len(data) {
		return TLV{}, 0, ErrTLVLengthTooShort
	}
	length := int(binary.BigEndian.Uint16(data[cursor+1 : cursor+3]))
	valueStart := cursor + 3
	if valueStart+length > len(data) {
		return TLV{}, 0, ErrTLVValueTooShort
	}
	content := owner.RetainedSlice(valueStart, length)
	tag := tagForByte(rawByte)

	tlv := TLV{Type: tag, RawByte: rawByte, Content: content}
	if tag == TLVSSL {
		ssl, err := parseSSLInfo(content)
		if err != nil {
			return TLV{}, 0, err
		}
		tlv.SSL = ssl
	}
	return tlv, 3 + length, nil
}

func parseSSLInfo(content *buf.RefBuf) (*SSLInfo, error) {
	data := content.Bytes()
	if len(data) < 5 {
		return nil, ErrSSLTLVTooShort
	}
	clientBitfield := data[0]
	verify := int32(binary.BigEndian.Uint32(data[1:5]))

	info := &SSLInfo{
		Verify:         verify,
		ClientBitfield: clientBitfield,
		RawContent:     content.RetainedSlice(0, len(data)),
	}

	if len(data) > 5 {
		tail := content.RetainedSlice(5, len(data)-5)
		defer tail.Release()
		children, err := parseTLVs(tail)
		if err != nil {
			return nil, err
		}
		info.Encapsulated = children
	}
	return info, nil
}

func (t TLV) String() string {
	return fmt.Sprintf("tlv{type=%d len=%d}", t.RawByte, t.Content.Len())
}
