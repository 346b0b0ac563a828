// Package transport implements the point-to-point UDP datagram socket
// used to exchange one request/response frame per transaction with the
// arm controller, grounded on the connect/send/receive dialog in
// Valkyrie/internal/simulation/xplane.go.
package transport

import (
	"errors"
	"fmt"
	"net"
	"time"
)

// ControllerPort is the fixed UDP port the on-arm controller listens on.
const ControllerPort = 50000

// ErrTimeout is returned by Receive when no reply arrives within the
// deadline.
var ErrTimeout = errors.New("transport: receive timeout")

// UDP is a connected point-to-point datagram socket: Dial binds an
// ephemeral local port and connects it to the controller so Send/Receive
// never need an explicit peer address.
type UDP struct {
	conn *net.UDPConn
}

// Dial binds an ephemeral local UDP port and connects it to
// serverIP:ControllerPort.
func Dial(serverIP string) (*UDP, error) {
	remote, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", serverIP, ControllerPort))
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", serverIP, err)
	}

	conn, err := net.DialUDP("udp", nil, remote)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", serverIP, err)
	}

	return &UDP{conn: conn}, nil
}

// Send writes one datagram; every frame fits in a single UDP packet so
// no fragmentation handling is required.
func (u *UDP) Send(frame []byte) error {
	_, err := u.conn.Write(frame)
	if err != nil {
		return fmt.Errorf("transport: send: %w", err)
	}
	return nil
}

// Receive blocks for at most timeout waiting for one reply datagram. It
// returns ErrTimeout itself (not wrapped) if the deadline elapses first.
func (u *UDP) Receive(buf []byte, timeout time.Duration) (int, error) {
	if err := u.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("transport: set read deadline: %w", err)
	}

	n, err := u.conn.Read(buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return 0, ErrTimeout
		}
		return 0, fmt.Errorf("transport: receive: %w", err)
	}
	return n, nil
}

// LocalAddr returns the bound local address, mainly useful for tests.
func (u *UDP) LocalAddr() net.Addr {
	return u.conn.LocalAddr()
}

// Close releases the socket.
func (u *UDP) Close() error {
	return u.conn.Close()
}
