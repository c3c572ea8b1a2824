package connwrap

import (
	"net"
	"time"
)

const defaultReadHeaderTimeout = 5 * time.Second

// Listener wraps a net.Listener so every accepted connection goes
// through Conn's PROXY header detection.
type Listener struct {
	net.Listener

	options []Option
}

func NewListener(listener net.Listener, opts ...Option) *Listener {
	return &Listener{Listener: listener, options: opts}
}

func (ln *Listener) Accept() (net.Conn, error) {
	rawConn, err := ln.Listener.Accept()
	if err != nil {
		return nil, err
	}

	conn := NewConn(rawConn, ln.options...)
	if conn.readHeaderTimeout <= 0 {
		conn.readHeaderTimeout = defaultReadHeaderTimeout
	}
	return conn, nil
}
