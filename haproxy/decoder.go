package haproxy

import (
	"encoding/binary"
	"net"
	"strings"

	"github.com/fango6/portentry/buf"
)

const (
	v1MaxFrameLen = 108 // includes the trailing CRLF

	addressLengthIPv4 = 12
	addressLengthIPv6 = 36
	addressLengthUnix = 216

	maxTLVSizeCeiling    = 65319 // 65535 - 216, per spec.md §6
	maxV2FrameSizeFloor  = 16 + addressLengthUnix
	maxV2FrameSizeCeil   = 16 + 65535
	defaultMaxV2FrameLen = maxV2FrameSizeCeil
)

var v1Prefix = []byte("PROXY")
var v2Signature = []byte("\r\n\r\n\x00\r\nQUIT\n")

// DetectResult is the outcome of a standalone protocol-version sniff,
// matching spec.md §4.2's detectProtocol contract.
type DetectResult int

const (
	DetectNeedsMoreData DetectResult = iota
	DetectV1
	DetectV2
	DetectInvalid
)

// DetectProtocol peeks at cur without consuming anything and reports
// which PROXY protocol version the stream appears to carry.
func DetectProtocol(cur *buf.Cursor) DetectResult {
	readable := cur.ReadableBytes()

	if readable >= len(v2Signature) && hasPrefix(cur, v2Signature) {
		if readable < len(v2Signature)+1 {
			return DetectNeedsMoreData
		}
		b13, _ := cur.Peek(len(v2Signature))
		if b13>>4 != 0x02 {
			return DetectInvalid
		}
		return DetectV2
	}
	if readable >= len(v1Prefix) && hasPrefix(cur, v1Prefix) {
		return DetectV1
	}
	if readable >= len(v2Signature) {
		return DetectInvalid
	}
	return DetectNeedsMoreData
}

func hasPrefix(cur *buf.Cursor, prefix []byte) bool {
	for i, want := range prefix {
		got, ok := cur.Peek(i)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// Result is the outcome of one Decoder.Decode call.
type Result int

const (
	NeedMoreData Result = iota
	Emitted
	PassThrough
)

type internalState int

const (
	stateDetect internalState = iota
	stateV1Frame
	stateV1Discard
	stateV2Frame
	stateV2Discard
)

// Decoder is a single-shot PROXY protocol header decoder: once it
// emits a message or fails, it marks itself finished and every
// subsequent Decode call returns PassThrough without touching the
// cursor, per spec.md §4.2.
type Decoder struct {
	state      internalState
	finished   bool
	maxTLVSize int
	// maxV2FrameSize bounds the *total* v2 frame (16-byte fixed prefix
	// + address block + TLV section); see spec.md §4.2 and §6.
	maxV2FrameSize int

	pendingErr error
	// discardRemaining counts the bytes of an oversized v2 frame that
	// stateV2Discard still has to drop.
	discardRemaining int
}

// NewDecoder constructs a Decoder with the given options applied over
// the defaults (maxTLVSize = 65319, maxV2FrameSize = 16+65535).
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		maxTLVSize:     maxTLVSizeCeiling,
		maxV2FrameSize: defaultMaxV2FrameLen,
	}
	for _, o := range opts {
		o(d)
	}
	if d.maxV2FrameSize < maxV2FrameSizeFloor {
		d.maxV2FrameSize = maxV2FrameSizeFloor
	}
	if d.maxV2FrameSize > maxV2FrameSizeCeil {
		d.maxV2FrameSize = maxV2FrameSizeCeil
	}
	return d
}

// Finished reports whether this decoder has already emitted a message
// or failed and will no longer touch the cursor.
func (d *Decoder) Finished() bool { return d.finished }

// Decode drives the state machine forward with whatever bytes cur
// currently makes available. It returns (message, Emitted, nil) the
// moment a full header is parsed, (nil, NeedMoreData, nil) when it
// needs more bytes to make progress, and (nil, PassThrough, err) once
// it has permanently failed (err is non-nil the first time this
// happens, nil on every call after).
func (d *Decoder) Decode(cur *buf.Cursor) (*Message, Result, error) {
	if d.finished {
		return nil, PassThrough, nil
	}

	for {
		switch d.state {
		case stateDetect:
			switch DetectProtocol(cur) {
			case DetectNeedsMoreData:
				return nil, NeedMoreData, nil
			case DetectV1:
				d.state = stateV1Frame
			case DetectV2:
				d.state = stateV2Frame
			case DetectInvalid:
				d.finished = true
				return nil, PassThrough, protoErr(ErrInvalidPrefix)
			}
		case stateV1Frame:
			return d.decodeV1Frame(cur)
		case stateV1Discard:
			return d.continueV1Discard(cur)
		case stateV2Frame:
			return d.decodeV2Frame(cur)
		case stateV2Discard:
			return d.continueV2Discard(cur)
		}
	}
}

func (d *Decoder) decodeV1Frame(cur *buf.Cursor) (*Message, Result, error) {
	readable := cur.ReadableBytes()
	idx := cur.FindByte(0, readable, func(b byte) bool { return b == '\n' })
	if idx < 0 {
		if readable <= v1MaxFrameLen {
			return nil, NeedMoreData, nil
		}
		d.state = stateV1Discard
		d.pendingErr = protoErr(ErrV1HeaderTooLong)
		return d.continueV1Discard(cur)
	}

	frameLen := idx + 1
	if frameLen > v1MaxFrameLen {
		cur.SkipBytes(frameLen)
		d.finished = true
		return nil, PassThrough, protoErr(ErrV1HeaderTooLong)
	}

	slice, _ := cur.ReadSlice(frameLen)
	defer slice.Release()
	data := slice.Bytes()

	if frameLen < 2 || data[frameLen-2] != '\r' {
		d.finished = true
		return nil, PassThrough, protoErr(ErrV1MissingCRLF)
	}

	msg, err := parseV1Line(data[:frameLen-2])
	d.finished = true
	if err != nil {
		return nil, PassThrough, protoErr(err)
	}
	return msg, Emitted, nil
}

// continueV1Discard resyncs on the next LF (bare LF accepted, per the
// lone-LF discard-resync carve-out), dropping bytes as it goes.
func (d *Decoder) continueV1Discard(cur *buf.Cursor) (*Message, Result, error) {
	readable := cur.ReadableBytes()
	idx := cur.FindByte(0, readable, func(b byte) bool { return b == '\n' })
	if idx < 0 {
		cur.SkipBytes(readable)
		return nil, NeedMoreData, nil
	}
	cur.SkipBytes(idx + 1)
	d.finished = true
	return nil, PassThrough, d.pendingErr
}

func parseV1Line(line []byte) (*Message, error) {
	tokens := strings.Split(string(line), " ")
	if len(tokens) < 2 || tokens[0] != "PROXY" {
		return nil, ErrV1BadTokenCount
	}

	var af AddressFamily
	switch tokens[1] {
	case "UNKNOWN":
		return V1Unknown, nil
	case "TCP4":
		af = AFInet
	case "TCP6":
		af = AFInet6
	default:
		return nil, ErrV1UnsupportedProto
	}

	if len(tokens) != 6 {
		return nil, ErrV1BadTokenCount
	}
	if err := validateV1Address(tokens[2], af); err != nil {
		return nil, err
	}
	if err := validateV1Address(tokens[3], af); err != nil {
		return nil, err
	}
	srcPort, err := parseAndValidatePort(tokens[4])
	if err != nil {
		return nil, err
	}
	dstPort, err := parseAndValidatePort(tokens[5])
	if err != nil {
		return nil, err
	}

	proto := ProtoTCP4
	if af == AFInet6 {
		proto = ProtoTCP6
	}
	return &Message{
		Version:         V1,
		Command:         CmdProxy,
		ProxiedProtocol: proto,
		SourceAddress:   tokens[2],
		DestAddress:     tokens[3],
		SourcePort:      srcPort,
		DestPort:        dstPort,
	}, nil
}

func (d *Decoder) decodeV2Frame(cur *buf.Cursor) (*Message, Result, error) {
	readable := cur.ReadableBytes()
	if readable < 16 {
		return nil, NeedMoreData, nil
	}

	b13, _ := cur.Peek(12)
	if b13>>4 != 0x02 {
		d.finished = true
		return nil, PassThrough, protoErr(ErrV2BadVersionOrCmd)
	}
	cmdNibble := b13 & 0x0F
	if cmdNibble > 1 {
		d.finished = true
		return nil, PassThrough, protoErr(ErrV2BadVersionOrCmd)
	}
	command := CmdLocal
	if cmdNibble == 1 {
		command = CmdProxy
	}

	b14, _ := cur.Peek(13)
	addrLen, _ := cur.PeekUnsignedShortBE(14)
	total := 16 + int(addrLen)

	if readable < total && total > d.maxV2FrameSize {
		d.state = stateV2Discard
		d.pendingErr = protoErr(ErrV2FrameTooLarge)
		d.discardRemaining = total
		return d.continueV2Discard(cur)
	}
	if readable < total {
		return nil, NeedMoreData, nil
	}

	frame, _ := cur.ReadSlice(total)
	defer frame.Release()
	data := frame.Bytes()

	if command == CmdLocal {
		d.finished = true
		return V2Local, Emitted, nil
	}

	if b14 == 0x00 {
		d.finished = true
		return V2Unknown, Emitted, nil
	}

	afNibble := b14 >> 4
	tpNibble := b14 & 0x0F
	if afNibble < 1 || afNibble > 3 || tpNibble < 1 || tpNibble > 2 {
		d.finished = true
		return nil, PassThrough, protoErr(ErrV2BadFamilyOrProto)
	}
	af := AddressFamily(afNibble)
	tp := TransportProtocol(tpNibble)

	payload := data[16:]
	msg, err := parseV2Payload(af, tp, payload, d.maxTLVSize)
	d.finished = true
	if err != nil {
		return nil, PassThrough, protoErr(err)
	}
	msg.raw = append([]byte(nil), data...)
	return msg, Emitted, nil
}

// continueV2Discard is only reached when the declared frame length
// exceeds the configured maximum; it drops bytes until the declared
// frame boundary is reached so the caller can resync on whatever
// bytes follow. It never revisits already-sniffed header bytes.
func (d *Decoder) continueV2Discard(cur *buf.Cursor) (*Message, Result, error) {
	readable := cur.ReadableBytes()
	if readable < d.discardRemaining {
		cur.SkipBytes(readable)
		d.discardRemaining -= readable
		return nil, NeedMoreData, nil
	}
	cur.SkipBytes(d.discardRemaining)
	d.discardRemaining = 0
	d.finished = true
	return nil, PassThrough, d.pendingErr
}

func parseV2Payload(af AddressFamily, tp TransportProtocol, payload []byte, maxTLVSize int) (*Message, error) {
	var srcAddr, dstAddr string
	var srcPort, dstPort uint16
	var tlvSection []byte

	switch af {
	case AFInet:
		if len(payload) < addressLengthIPv4 {
			return nil, ErrV2AddressBlockShort
		}
		srcAddr = net.IPv4(payload[0], payload[1], payload[2], payload[3]).String()
		dstAddr = net.IPv4(payload[4], payload[5], payload[6], payload[7]).String()
		srcPort = binary.BigEndian.Uint16(payload[8:10])
		dstPort = binary.BigEndian.Uint16(payload[10:12])
		if srcPort == 0 || dstPort == 0 {
			return nil, ErrV2InvalidPort
		}
		tlvSection = payload[addressLengthIPv4:]

	case AFInet6:
		if len(payload) < addressLengthIPv6 {
			return nil, ErrV2AddressBlockShort
		}
		srcAddr = net.IP(payload[0:16]).String()
		dstAddr = net.IP(payload[16:32]).String()
		srcPort = binary.BigEndian.Uint16(payload[32:34])
		dstPort = binary.BigEndian.Uint16(payload[34:36])
		if srcPort == 0 || dstPort == 0 {
			return nil, ErrV2InvalidPort
		}
		tlvSection = payload[addressLengthIPv6:]

	case AFUnix:
		if len(payload) < addressLengthUnix {
			return nil, ErrV2AddressBlockShort
		}
		srcAddr = parseUnixPath(payload[0:108])
		dstAddr = parseUnixPath(payload[108:216])
		tlvSection = payload[addressLengthUnix:]

	default:
		return nil, ErrV2BadFamilyOrProto
	}

	if len(tlvSection) > maxTLVSize {
		return nil, ErrV2FrameTooLarge
	}

	var tlvs []TLV
	if len(tlvSection) > 0 {
		owned := buf.New(append([]byte(nil), tlvSection...))
		parsed, err := parseTLVs(owned)
		owned.Release()
		if err != nil {
			return nil, err
		}
		tlvs = parsed
	}

	return &Message{
		Version:         V2,
		Command:         CmdProxy,
		ProxiedProtocol: protoFor(af, tp),
		SourceAddress:   srcAddr,
		DestAddress:     dstAddr,
		SourcePort:      srcPort,
		DestPort:        dstPort,
		TLVs:            tlvs,
	}, nil
}
