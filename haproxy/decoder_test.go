package haproxy

import (
	"net"
	"testing"

	"github.com/fango6/portentry/buf"
	"github.com/stretchr/testify/require"
)

func decodeAll(t *testing.T, d *Decoder, chunks ...[]byte) (*Message, error) {
	t.Helper()
	cur := buf.NewCursor()
	var lastErr error
	for _, c := range chunks {
		cur.Write(c)
		msg, res, err := d.Decode(cur)
		if err != nil {
			lastErr = err
		}
		if res == Emitted {
			return msg, nil
		}
		if res == PassThrough && err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func Test_V1_Unknown(t *testing.T) {
	msg, err := decodeAll(t, NewDecoder(), []byte("PROXY UNKNOWN 192.168.0.1 192.168.0.11 56324 443\r\n"))
	require.NoError(t, err)
	require.Same(t, V1Unknown, msg)
	require.Equal(t, ProtoUnknown, msg.ProxiedProtocol)
	require.Equal(t, CmdProxy, msg.Command)
	require.Equal(t, uint16(0), msg.SourcePort)
	require.Equal(t, "", msg.SourceAddress)
}

func Test_V1_TCP4(t *testing.T) {
	msg, err := decodeAll(t, NewDecoder(), []byte("PROXY TCP4 192.168.0.1 192.168.0.11 56324 443\r\n"))
	require.NoError(t, err)
	require.Equal(t, V1, msg.Version)
	require.Equal(t, CmdProxy, msg.Command)
	require.Equal(t, ProtoTCP4, msg.ProxiedProtocol)
	require.Equal(t, "192.168.0.1", msg.SourceAddress)
	require.Equal(t, "192.168.0.11", msg.DestAddress)
	require.Equal(t, uint16(56324), msg.SourcePort)
	require.Equal(t, uint16(443), msg.DestPort)
}

func Test_V1_ChunkedFeed(t *testing.T) {
	line := "PROXY TCP4 10.0.0.1 10.0.0.2 1 2\r\n"
	d := NewDecoder()
	msg, err := decodeAll(t, d, []byte(line[:5]), []byte(line[5:20]), []byte(line[20:]))
	require.NoError(t, err)
	require.Equal(t, "10.0.0.1", msg.SourceAddress)
}

var v1NegativeTests = []struct {
	name string
	line string
}{
	{"udp4", "PROXY UDP4 192.168.0.1 192.168.0.11 56324 443\r\n"},
	{"port-too-large", "PROXY TCP4 192.168.0.1 192.168.0.11 80000 443\r\n"},
	{"bad-ipv4", "PROXY TCP4 299.168.0.1 192.168.0.11 56324 443\r\n"},
	{"bad-ipv6", "PROXY TCP6 r001:db8::1 ::2 56324 443\r\n"},
	{"tcp7", "PROXY TCP7 192.168.0.1 192.168.0.11 56324 443\r\n"},
	{"five-tokens", "PROXY TCP4 192.168.0.1 192.168.0.11 56324\r\n"},
	{"seven-tokens", "PROXY TCP4 192.168.0.1 192.168.0.11 56324 443 extra\r\n"},
	{"lf-only", "PROXY TCP4 192.168.0.1 192.168.0.11 56324 443\n"},
}

func Test_V1_Negative(t *testing.T) {
	for _, tt := range v1NegativeTests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAll(t, NewDecoder(), []byte(tt.line))
			require.Error(t, err)
		})
	}
}

func Test_V1_HeaderTooLong(t *testing.T) {
	line := "PROXY TCP4 " + string(make([]byte, 200)) + "\r\n"
	_, err := decodeAll(t, NewDecoder(), []byte(line))
	require.Error(t, err)
}

func buildV2(cmd byte, afTp byte, payload []byte) []byte {
	out := append([]byte{}, v2Signature...)
	out = append(out, 0x20|cmd, afTp, byte(len(payload)>>8), byte(len(payload)))
	out = append(out, payload...)
	return out
}

func Test_V2_TCP4(t *testing.T) {
	payload := []byte{192, 168, 0, 1, 192, 168, 0, 11, 0xDC, 0x04, 0x01, 0xBB} // ports 56324, 443
	raw := buildV2(1, 0x11, payload)

	msg, err := decodeAll(t, NewDecoder(), raw)
	require.NoError(t, err)
	require.Equal(t, V2, msg.Version)
	require.Equal(t, ProtoTCP4, msg.ProxiedProtocol)
	require.Equal(t, "192.168.0.1", msg.SourceAddress)
	require.Equal(t, "192.168.0.11", msg.DestAddress)
	require.Equal(t, uint16(56324), msg.SourcePort)
	require.Equal(t, uint16(443), msg.DestPort)
}

func Test_V2_TCP6(t *testing.T) {
	src := net.ParseIP("2001:db8:85a3:0:0:8a2e:370:7334").To16()
	dst := net.ParseIP("1050:0:0:0:5:600:300c:326b").To16()
	payload := append(append([]byte{}, src...), dst...)
	payload = append(payload, 0xDC, 0x04, 0x01, 0xBB)
	raw := buildV2(1, 0x21, payload)

	msg, err := decodeAll(t, NewDecoder(), raw)
	require.NoError(t, err)
	require.Equal(t, ProtoTCP6, msg.ProxiedProtocol)
	require.Equal(t, "2001:db8:85a3::8a2e:370:7334", msg.SourceAddress)
	require.Equal(t, "1050::5:600:300c:326b", msg.DestAddress)
}

func Test_V2_Unix(t *testing.T) {
	src := make([]byte, 108)
	copy(src, "/var/run/src.sock")
	dst := make([]byte, 108)
	copy(dst, "/var/run/dest.sock")
	payload := append(append([]byte{}, src...), dst...)
	raw := buildV2(1, 0x31, payload)

	msg, err := decodeAll(t, NewDecoder(), raw)
	require.NoError(t, err)
	require.Equal(t, ProtoUnixStream, msg.ProxiedProtocol)
	require.Equal(t, "/var/run/src.sock", msg.SourceAddress)
	require.Equal(t, "/var/run/dest.sock", msg.DestAddress)
	require.Equal(t, uint16(0), msg.SourcePort)
	require.Equal(t, uint16(0), msg.DestPort)
}

func Test_V2_SSL_TLV(t *testing.T) {
	payload := []byte{127, 0, 0, 1, 127, 0, 0, 1, 0, 80, 0, 81}

	sslValue := []byte{byte(ClientSSL | ClientCertSess), 0, 0, 0, 0}
	sslValue = append(sslValue, pp2SubtypeVersion, 0, 5, 'T', 'L', 'S', 'v', '1')
	sslValue = append(sslValue, pp2SubtypeCN, 0, 4, 'L', 'E', 'A', 'F')

	tlv := append([]byte{pp2TypeSSL, byte(len(sslValue) >> 8), byte(len(sslValue))}, sslValue...)
	payload = append(payload, tlv...)

	raw := buildV2(1, 0x11, payload)
	msg, err := decodeAll(t, NewDecoder(), raw)
	require.NoError(t, err)
	require.Len(t, msg.TLVs, 3)

	ssl := msg.TLVs[0]
	require.Equal(t, TLVSSL, ssl.Type)
	require.NotNil(t, ssl.SSL)
	require.Equal(t, int32(0), ssl.SSL.Verify)
	require.True(t, ssl.SSL.ClientSSL())
	require.True(t, ssl.SSL.ClientCertSess())
	require.False(t, ssl.SSL.ClientCertConn())

	require.Equal(t, TLVSSLVersion, msg.TLVs[1].Type)
	require.Equal(t, "TLSv1", string(msg.TLVs[1].Content.Bytes()))
	require.Equal(t, TLVSSLCN, msg.TLVs[2].Type)
	require.Equal(t, "LEAF", string(msg.TLVs[2].Content.Bytes()))
}

func Test_V2_TCP4_ZeroPort_Rejected(t *testing.T) {
	payload := []byte{192, 168, 0, 1, 192, 168, 0, 11, 0x00, 0x00, 0x01, 0xBB} // src port 0
	raw := buildV2(1, 0x11, payload)

	msg, err := decodeAll(t, NewDecoder(), raw)
	require.Nil(t, msg)
	require.ErrorIs(t, err, ErrV2InvalidPort)
}

func Test_V2_Local(t *testing.T) {
	raw := buildV2(0, 0x11, nil)
	msg, err := decodeAll(t, NewDecoder(), raw)
	require.NoError(t, err)
	require.Same(t, V2Local, msg)
}

func Test_V2_OversizedFrame_DiscardsAndResyncs(t *testing.T) {
	const declaredLen = 250 // total = 16+250 = 266
	d := NewDecoder(WithMaxV2FrameSize(200))

	header := append([]byte{}, v2Signature...)
	header = append(header, 0x21, 0x11, byte(declaredLen>>8), byte(declaredLen))

	rest := make([]byte, declaredLen)
	trailing := []byte("next-frame")

	msg, err := decodeAll(t, d, header, append(rest, trailing...))
	require.Nil(t, msg)
	require.ErrorIs(t, err, ErrV2FrameTooLarge)
}

func Test_SingleShot_PassThroughAfterEmit(t *testing.T) {
	d := NewDecoder()
	cur := buf.NewCursor()
	cur.Write([]byte("PROXY UNKNOWN\r\n"))
	_, res, err := d.Decode(cur)
	require.NoError(t, err)
	require.Equal(t, Emitted, res)

	cur.Write([]byte("more unrelated bytes"))
	msg, res, err := d.Decode(cur)
	require.Nil(t, msg)
	require.Nil(t, err)
	require.Equal(t, PassThrough, res)
}
