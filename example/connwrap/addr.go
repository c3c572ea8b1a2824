package connwrap

import (
	"strconv"

	"github.com/fango6/portentry/haproxy"
)

// proxiedAddr is a net.Addr built from a decoded header's source or
// destination address, since haproxy.Message deliberately stays
// decoupled from the net package.
type proxiedAddr struct {
	network string
	addr    string
}

func (a proxiedAddr) Network() string { return a.network }
func (a proxiedAddr) String() string  { return a.addr }

func networkFor(pp haproxy.ProxiedProtocol) string {
	switch pp.AddressFamily() {
	case haproxy.AFUnix:
		return "unix"
	}
	if pp.TransportProtocol() == haproxy.TransportDgram {
		return "udp"
	}
	return "tcp"
}

func portString(p uint16) string {
	return strconv.FormatUint(uint64(p), 10)
}
