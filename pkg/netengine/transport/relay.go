package transport

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// relayHandshake speaks the rendezvous sub-protocol over conn: announce
// the session id, then read the response one byte at a time. A generic
// buffered line reader would risk pulling subsequent server-banner bytes
// into a buffer that is discarded once the handshake layer takes over the
// raw socket; reading byte-at-a-time here guarantees every byte after the
// response line is still sitting on the wire for the next consumer.
func relayHandshake(ctx context.Context, conn net.Conn, sessionID string, timeout time.Duration) error {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	deadline := time.Now().Add(timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)
	defer conn.SetDeadline(time.Time{})

	if _, err := fmt.Fprintf(conn, "SESSION %s client\n", sessionID); err != nil {
		return classifyDialErr(err)
	}

	line, err := readLineByteAtATime(conn)
	if err != nil {
		return classifyDialErr(err)
	}
	line = strings.TrimRight(line, "\r")

	switch {
	case line == "CONNECTED":
		return nil
	case strings.HasPrefix(line, "ERROR"):
		return &Error{Kind: KindRelayProtocol, Err: fmt.Errorf("%s", line)}
	default:
		return &Error{Kind: KindRelayProtocol, Err: fmt.Errorf("unexpected relay response: %s", line)}
	}
}

// readLineByteAtATime reads from r one byte at a time until (and
// excluding) a line-feed, without buffering past it.
func readLineByteAtATime(r net.Conn) (string, error) {
	var sb strings.Builder
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n == 1 {
			if buf[0] == '\n' {
				return sb.String(), nil
			}
			sb.WriteByte(buf[0])
		}
		if err != nil {
			return "", err
		}
	}
}
