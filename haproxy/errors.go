package haproxy

import "github.com/pkg/errors"

// ProtocolError is the single error kind surfaced by Decoder.Decode:
// any malformed or unsupported header is fatal for the connection, per
// spec.md §7.
type ProtocolError struct {
	cause error
}

func (e *ProtocolError) Error() string { return e.cause.Error() }
func (e *ProtocolError) Unwrap() error { return e.cause }

func protoErr(err error) *ProtocolError {
	return &ProtocolError{cause: err}
}

var (
	ErrInvalidPrefix       = errors.New("haproxy: input is neither a v1 nor a v2 PROXY header")
	ErrV1HeaderTooLong     = errors.New("haproxy: v1 header exceeds 108 bytes")
	ErrV1MissingCRLF       = errors.New("haproxy: v1 header did not end with CRLF")
	ErrV1BadTokenCount     = errors.New("haproxy: v1 header has wrong number of tokens")
	ErrV1UnsupportedProto  = errors.New("haproxy: v1 header names an unsupported protocol (only TCP4, TCP6, UNKNOWN)")
	ErrV1InvalidAddress    = errors.New("haproxy: v1 header has an invalid address literal")
	ErrV1InvalidPort       = errors.New("haproxy: v1 header has an invalid port")
	ErrV2BadVersionOrCmd   = errors.New("haproxy: v2 header has an invalid version/command byte")
	ErrV2BadFamilyOrProto  = errors.New("haproxy: v2 header has an invalid address-family/transport byte")
	ErrV2FrameTooLarge     = errors.New("haproxy: v2 frame exceeds the configured maximum size")
	ErrV2AddressBlockShort = errors.New("haproxy: v2 address block shorter than its family requires")
	ErrV2InvalidPort       = errors.New("haproxy: v2 header has a zero source or destination port")
)
