// Package haproxy implements a streaming decoder for the HAProxy PROXY
// protocol, versions 1 (text) and 2 (binary), including TLV parsing.
// The decoder is a pull-driven state machine over buf.Cursor: it never
// blocks and never returns a partial message, matching the contract in
// spec.md §4.2.
package haproxy

// Version identifies which PROXY protocol wire format produced a
// Message.
type Version byte

const (
	V1 Version = iota + 1
	V2
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	}
	return "unknown"
}

// Command distinguishes a real proxied connection from a local
// health-check/keepalive connection that carries no address
// information.
type Command byte

const (
	CmdLocal Command = iota
	CmdProxy
)

func (c Command) String() string {
	switch c {
	case CmdLocal:
		return "LOCAL"
	case CmdProxy:
		return "PROXY"
	}
	return "unknown"
}

// AddressFamily is the address family carried by a v2 header, or
// inferred for v1.
type AddressFamily byte

const (
	AFUnspec AddressFamily = iota
	AFInet
	AFInet6
	AFUnix
)

// TransportProtocol is the L4 protocol carried by a v2 header.
type TransportProtocol byte

const (
	TransportUnspec TransportProtocol = iota
	TransportStream
	TransportDgram
)

// ProxiedProtocol is the (address family, transport) pair spelled out
// as a single value, matching the vocabulary of spec.md's data model
// (TCP4, TCP6, UDP4, UDP6, UNIX_STREAM, UNIX_DGRAM, UNKNOWN).
type ProxiedProtocol byte

const (
	ProtoUnknown ProxiedProtocol = iota
	ProtoTCP4
	ProtoTCP6
	ProtoUDP4
	ProtoUDP6
	ProtoUnixStream
	ProtoUnixDgram
)

func (p ProxiedProtocol) String() string {
	switch p {
	case ProtoTCP4:
		return "TCP4"
	case ProtoTCP6:
		return "TCP6"
	case ProtoUDP4:
		return "UDP4"
	case ProtoUDP6:
		return "UDP6"
	case ProtoUnixStream:
		return "UNIX_STREAM"
	case ProtoUnixDgram:
		return "UNIX_DGRAM"
	default:
		return "UNKNOWN"
	}
}

// AddressFamily reports the address family implied by p.
func (p ProxiedProtocol) AddressFamily() AddressFamily {
	switch p {
	case ProtoTCP4, ProtoUDP4:
		return AFInet
	case ProtoTCP6, ProtoUDP6:
		return AFInet6
	case ProtoUnixStream, ProtoUnixDgram:
		return AFUnix
	default:
		return AFUnspec
	}
}

// TransportProtocol reports the transport implied by p.
func (p ProxiedProtocol) TransportProtocol() TransportProtocol {
	switch p {
	case ProtoTCP4, ProtoTCP6, ProtoUnixStream:
		return TransportStream
	case ProtoUDP4, ProtoUDP6, ProtoUnixDgram:
		return TransportDgram
	default:
		return TransportUnspec
	}
}

func protoFor(af AddressFamily, tp TransportProtocol) ProxiedProtocol {
	switch af {
	case AFInet:
		if tp == TransportDgram {
			return ProtoUDP4
		}
		return ProtoTCP4
	case AFInet6:
		if tp == TransportDgram {
			return ProtoUDP6
		}
		return ProtoTCP6
	case AFUnix:
		if tp == TransportDgram {
			return ProtoUnixDgram
		}
		return ProtoUnixStream
	default:
		return ProtoUnknown
	}
}
