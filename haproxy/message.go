package haproxy

import (
	"go.uber.org/zap"

	"github.com/sirupsen/logrus"
)

// Message is an immutable, fully-parsed PROXY protocol header, per
// spec.md §3. A Message that is UNKNOWN or CmdLocal carries no
// addresses, no ports, and no TLVs — see the three canonical
// singletons below.
type Message struct {
	Version         Version
	Command         Command
	ProxiedProtocol ProxiedProtocol
	SourceAddress   string // empty when not applicable
	DestAddress     string // empty when not applicable
	SourcePort      uint16
	DestPort        uint16
	TLVs            []TLV

	// raw holds the exact bytes this message was decoded from, used
	// only by VerifyChecksum (§3 of SPEC_FULL.md); it plays no role in
	// the decoded fields above.
	raw []byte
}

// Canonical singletons: structurally immutable and carry no owned
// resources, so they are safe to share across every connection,
// matching spec.md §9's "Singleton canonical messages" design note.
var (
	V1Unknown = &Message{Version: V1, Command: CmdProxy, ProxiedProtocol: ProtoUnknown}
	V2Unknown = &Message{Version: V2, Command: CmdProxy, ProxiedProtocol: ProtoUnknown}
	V2Local   = &Message{Version: V2, Command: CmdLocal, ProxiedProtocol: ProtoUnknown}
)

// TLVValue returns the content bytes of the first TLV matching tag.
func (m *Message) TLVValue(tag TLVTag) ([]byte, bool) {
	for _, t := range m.TLVs {
		if t.Type == tag {
			return t.Content.Bytes(), true
		}
	}
	return nil, false
}

// UnregisteredTLVPayload returns the first byte and remaining payload
// of the first TLVOther record in the message, matching the
// convention used by cloud load balancers to stash a VPC endpoint id
// behind a vendor-private TLV type: a one-byte sub-format marker
// followed by the id itself.
func (m *Message) UnregisteredTLVPayload() (firstByte byte, payload []byte, ok bool) {
	for _, t := range m.TLVs {
		if t.Type != TLVOther {
			continue
		}
		data := t.Content.Bytes()
		if len(data) == 0 {
			continue
		}
		return data[0], data[1:], true
	}
	return 0, nil, false
}

// Release drops every TLV content reference owned by this message. It
// must be called exactly once per message obtained from Decode (the
// canonical singletons own no resources, so releasing them is a
// no-op).
func (m *Message) Release() {
	for _, t := range m.TLVs {
		if t.Content != nil {
			t.Content.Release()
		}
		if t.SSL != nil && t.SSL.RawContent != nil {
			t.SSL.RawContent.Release()
		}
	}
}

// ZapFields projects the header onto structured zap fields, mirroring
// the teacher's Header.ZapFields().
func (m *Message) ZapFields() []zap.Field {
	fields := make([]zap.Field, 0, 7)
	fields = append(fields,
		zap.Stringer("version", m.Version),
		zap.Stringer("command", m.Command),
		zap.Stringer("proxied_protocol", m.ProxiedProtocol),
		zap.String("source_address", m.SourceAddress),
		zap.String("destination_address", m.DestAddress),
		zap.Uint16("source_port", m.SourcePort),
		zap.Uint16("destination_port", m.DestPort),
	)
	if len(m.TLVs) > 0 {
		fields = append(fields, zap.Int("tlv_count", len(m.TLVs)))
	}
	return fields
}

// LogrusFields mirrors ZapFields for logrus-based consumers.
func (m *Message) LogrusFields() logrus.Fields {
	fields := logrus.Fields{
		"version":             m.Version.String(),
		"command":             m.Command.String(),
		"proxied_protocol":    m.ProxiedProtocol.String(),
		"source_address":      m.SourceAddress,
		"destination_address": m.DestAddress,
		"source_port":         m.SourcePort,
		"destination_port":    m.DestPort,
	}
	if len(m.TLVs) > 0 {
		fields["tlv_count"] = len(m.TLVs)
	}
	return fields
}
