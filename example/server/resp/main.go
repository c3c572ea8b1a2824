package main

import (
	"log"
	"net"

	"github.com/fango6/portentry/buf"
	"github.com/fango6/portentry/resp"
)

// This is a toy RESP echo server: it decodes whatever comes in,
// aggregates bulk strings and arrays, and writes each fully-assembled
// message straight back out.
func main() {
	ln, err := net.Listen("tcp", "127.0.0.1:6399")
	if err != nil {
		log.Fatal(err)
	}

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Println(err)
			continue
		}
		go serve(conn)
	}
}

func serve(conn net.Conn) {
	defer conn.Close()

	cur := buf.NewCursor()
	dec := resp.NewDecoder(resp.WithInlineCommands(true))
	bulk := resp.NewBulkAggregator()
	arr := resp.NewArrayAggregator()
	enc := resp.NewEncoder()

	var scratch [4096]byte
	for {
		n, err := conn.Read(scratch[:])
		if n > 0 {
			cur.Write(scratch[:n])
		}
		if err != nil {
			return
		}

		msgs, err := dec.Decode(cur)
		if err != nil {
			log.Println("resp decode error:", err)
			return
		}

		for _, msg := range msgs {
			full, tooLong, err := bulk.Feed(msg)
			if err != nil {
				log.Println("resp aggregation error:", err)
				return
			}
			if tooLong != nil {
				log.Println("dropped oversized bulk string:", tooLong)
				continue
			}
			if full == nil {
				continue
			}

			complete, err := arr.Feed(full)
			if err != nil {
				log.Println("resp array aggregation error:", err)
				return
			}
			if complete == nil {
				continue
			}

			out, err := enc.Encode(complete)
			if err != nil {
				log.Println("resp encode error:", err)
				complete.Release()
				return
			}
			if _, err := out.WriteTo(conn); err != nil {
				complete.Release()
				return
			}
			complete.Release()
		}

		cur.DiscardReadBytes()
	}
}
