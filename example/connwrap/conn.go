// Package connwrap shows how to drive the incremental haproxy.Decoder
// from a blocking net.Conn: it is not itself part of the codec core,
// just a worked example of wiring buf.Cursor into a real transport.
package connwrap

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/fango6/portentry/buf"
	"github.com/fango6/portentry/haproxy"
)

var ErrValidateCRC32cChecksum = errors.New("connwrap: CRC-32c checksum validation failed")

// PostReadHeader is called once, right after the header has been read
// (successfully or not).
type PostReadHeader func(h *haproxy.Message, err error)

// Conn wraps a net.Conn, decoding an optional PROXY protocol header
// off the front of the stream before handing the rest of the bytes
// through untouched.
type Conn struct {
	net.Conn

	cur         *buf.Cursor
	dec         *haproxy.Decoder
	decoderOpts []haproxy.Option

	Header            *haproxy.Message
	readHeaderOnce    sync.Once
	readHeaderTimeout time.Duration
	originalDeadline  time.Time
	readHeaderErr     error

	disableProxyProtocol bool
	checksum             bool
	postFunc             PostReadHeader
}

// NewConn wraps conn, applying opts. The header is not read until the
// first Read, LocalAddr, or RemoteAddr call.
func NewConn(conn net.Conn, opts ...Option) *Conn {
	c := &Conn{
		Conn: conn,
		cur:  buf.NewCursor(),
	}
	for _, o := range opts {
		o(c)
	}
	c.dec = haproxy.NewDecoder(c.decoderOpts...)
	return c
}

// Read implements net.Conn, reading (and discarding) the PROXY header
// on first call before handing through application bytes.
func (c *Conn) Read(b []byte) (int, error) {
	c.readHeader()
	if c.readHeaderErr != nil {
		return 0, c.readHeaderErr
	}
	if readable := c.cur.ReadableBytes(); readable > 0 {
		n := len(b)
		if n > readable {
			n = readable
		}
		slice, _ := c.cur.ReadSlice(n)
		copy(b, slice.Bytes())
		slice.Release()
		return n, nil
	}
	return c.Conn.Read(b)
}

// LocalAddr implements net.Conn, substituting the header's destination
// address once it's been read successfully.
func (c *Conn) LocalAddr() net.Addr {
	c.readHeader()
	if addr, ok := c.proxiedLocalAddr(); ok {
		return addr
	}
	return c.Conn.LocalAddr()
}

// RemoteAddr implements net.Conn, substituting the header's source
// address once it's been read successfully.
func (c *Conn) RemoteAddr() net.Addr {
	c.readHeader()
	if addr, ok := c.proxiedRemoteAddr(); ok {
		return addr
	}
	return c.Conn.RemoteAddr()
}

func (c *Conn) proxiedLocalAddr() (net.Addr, bool) {
	if c.Header == nil || c.readHeaderErr != nil || c.Header.Command != haproxy.CmdProxy {
		return nil, false
	}
	if c.Header.DestAddress == "" {
		return nil, false
	}
	return proxiedAddr{network: networkFor(c.Header.ProxiedProtocol), addr: net.JoinHostPort(c.Header.DestAddress, portString(c.Header.DestPort))}, true
}

func (c *Conn) proxiedRemoteAddr() (net.Addr, bool) {
	if c.Header == nil || c.readHeaderErr != nil || c.Header.Command != haproxy.CmdProxy {
		return nil, false
	}
	if c.Header.SourceAddress == "" {
		return nil, false
	}
	return proxiedAddr{network: networkFor(c.Header.ProxiedProtocol), addr: net.JoinHostPort(c.Header.SourceAddress, portString(c.Header.SourcePort))}, true
}

// SetDeadline implements net.Conn, remembering the caller's deadline so
// it can be restored after the header read's own deadline expires.
func (c *Conn) SetDeadline(t time.Time) error {
	c.originalDeadline = t
	return c.Conn.SetDeadline(t)
}

// SetReadDeadline implements net.Conn, remembering the caller's
// deadline for the same reason as SetDeadline.
func (c *Conn) SetReadDeadline(t time.Time) error {
	c.originalDeadline = t
	return c.Conn.SetReadDeadline(t)
}

// TLVs returns the header's TLV records, or nil if none were read.
func (c *Conn) TLVs() []haproxy.TLV {
	if c.Header == nil {
		return nil
	}
	return c.Header.TLVs
}

// VpceID mirrors the teacher's GetVpceID: the first unregistered TLV's
// payload, with its leading sub-format byte discarded.
func (c *Conn) VpceID() string {
	if c.Header == nil {
		return ""
	}
	_, payload, ok := c.Header.UnregisteredTLVPayload()
	if !ok {
		return ""
	}
	return string(payload)
}

// VpceIDWithTag mirrors the teacher's GetVpceIDWithType: the raw value
// of the TLV carrying tag.
func (c *Conn) VpceIDWithTag(tag haproxy.TLVTag) string {
	if c.Header == nil {
		return ""
	}
	v, ok := c.Header.TLVValue(tag)
	if !ok {
		return ""
	}
	return string(v)
}

// Err reports the error (if any) encountered while reading the header.
func (c *Conn) Err() error {
	return c.readHeaderErr
}

// ZapFields projects the header onto zap fields, or nil if none was read.
func (c *Conn) ZapFields() []zap.Field {
	if c.Header == nil {
		return nil
	}
	return c.Header.ZapFields()
}

// LogrusFields projects the header onto logrus fields, or nil if none was read.
func (c *Conn) LogrusFields() logrus.Fields {
	if c.Header == nil {
		return nil
	}
	return c.Header.LogrusFields()
}

// readHeader drives the decoder against the underlying connection
// until it has emitted a header, passed through (no PROXY protocol
// present), or failed - exactly once per Conn.
func (c *Conn) readHeader() {
	c.readHeaderOnce.Do(func() {
		if c.disableProxyProtocol {
			return
		}

		originalDeadline := c.originalDeadline
		if c.readHeaderTimeout > 0 {
			c.Conn.SetReadDeadline(time.Now().Add(c.readHeaderTimeout))
			defer c.Conn.SetReadDeadline(originalDeadline)
		}

		var scratch [4096]byte
		for {
			msg, result, err := c.dec.Decode(c.cur)
			switch result {
			case haproxy.Emitted:
				c.finishHeader(msg, err)
				return

			case haproxy.PassThrough:
				if err != nil && !errors.Is(err, haproxy.ErrInvalidPrefix) {
					c.readHeaderErr = err
				}
				if c.postFunc != nil {
					c.postFunc(c.Header, c.readHeaderErr)
				}
				return

			case haproxy.NeedMoreData:
				n, rerr := c.Conn.Read(scratch[:])
				if n > 0 {
					c.cur.Write(scratch[:n])
				}
				if rerr != nil {
					c.readHeaderErr = rerr
					if c.postFunc != nil {
						c.postFunc(nil, rerr)
					}
					return
				}
			}
		}
	})
}

func (c *Conn) finishHeader(msg *haproxy.Message, err error) {
	if err == nil && msg != nil {
		if c.checksum && msg.Version == haproxy.V2 && !haproxy.VerifyChecksum(msg) {
			c.readHeaderErr = ErrValidateCRC32cChecksum
		} else {
			c.Header = msg
		}
	}
	if c.postFunc != nil {
		c.postFunc(c.Header, c.readHeaderErr)
	}
}
