package connwrap

import (
	"time"

	"github.com/fango6/portentry/haproxy"
)

// Option configures a Conn at construction time.
type Option func(*Conn)

// WithReadHeaderTimeout bounds how long reading the PROXY header may
// block before the connection is abandoned.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(c *Conn) { c.readHeaderTimeout = d }
}

// WithDisableProxyProtocol skips header detection entirely; Read
// behaves like the wrapped net.Conn from the first call.
func WithDisableProxyProtocol(disable bool) Option {
	return func(c *Conn) { c.disableProxyProtocol = disable }
}

// WithPostReadHeader registers a callback invoked once, right after
// the header has been read (successfully or not) - the natural place
// to log it.
func WithPostReadHeader(fn PostReadHeader) Option {
	return func(c *Conn) { c.postFunc = fn }
}

// WithCRC32cChecksum enables CRC-32c validation of v2 headers that
// carry a checksum TLV.
func WithCRC32cChecksum(want bool) Option {
	return func(c *Conn) { c.checksum = want }
}

// WithDecoderOptions passes options straight through to the
// underlying haproxy.Decoder (e.g. WithMaxTLVSize).
func WithDecoderOptions(opts ...haproxy.Option) Option {
	return func(c *Conn) { c.decoderOpts = opts }
}
