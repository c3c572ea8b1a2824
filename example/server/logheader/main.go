package main

import (
	"log"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/fango6/portentry/example/connwrap"
	"github.com/fango6/portentry/haproxy"
)

func main() {
	ln, err := net.Listen("tcp", "127.0.0.1:9090")
	if err != nil {
		log.Fatal(err)
	}

	proxyListener := connwrap.NewListener(ln, connwrap.WithPostReadHeader(loggingHeader))
	for {
		conn, err := proxyListener.Accept()
		if err != nil {
			log.Println(err)
			continue
		}

		go serve(conn)
	}
}

func serve(tcpConn net.Conn) {
	// do something
	conn, ok := tcpConn.(*connwrap.Conn)
	if ok && conn != nil {
		// do something
	}
}

func loggingHeader(h *haproxy.Message, err error) {
	if err != nil {
		logrus.WithError(err).Error("failed to parse proxy header")
		return
	}
	if h == nil {
		logrus.Info("no PROXY protocol header present")
		return
	}
	logrus.WithFields(h.LogrusFields()).Info("successfully parsed proxy header")
}
