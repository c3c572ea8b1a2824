package haproxy

import (
	"net"
	"strconv"

	"github.com/pkg/errors"
)

// parseAndValidatePort parses a decimal port string and enforces the
// 1..65535 range spec.md §3 requires for any non-UNKNOWN record.
func parseAndValidatePort(s string) (uint16, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrap(ErrV1InvalidPort, err.Error())
	}
	if n < 1 || n > 65535 {
		return 0, ErrV1InvalidPort
	}
	return uint16(n), nil
}

// validateV1Address checks a textual address literal against the
// family implied by the token that preceded it (TCP4 => dotted-quad,
// TCP6 => colon-hex).
func validateV1Address(s string, af AddressFamily) error {
	ip := net.ParseIP(s)
	if ip == nil {
		return ErrV1InvalidAddress
	}
	switch af {
	case AFInet:
		if ip.To4() == nil {
			return ErrV1InvalidAddress
		}
	case AFInet6:
		if ip.To4() != nil || ip.To16() == nil {
			return ErrV1InvalidAddress
		}
	}
	return nil
}

func parseUnixPath(name []byte) string {
	for i, b := range name {
		if b == 0 {
			return string(name[:i])
		}
	}
	return string(name)
}
