package transport

import (
	"net"
	"testing"
	"time"
)

// fakeController binds ControllerPort on loopback and echoes whatever it
// receives, standing in for the arm controller in tests.
func fakeController(t *testing.T) (*net.UDPConn, func()) {
	t.Helper()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: ControllerPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		t.Skipf("cannot bind controller port %d: %v", ControllerPort, err)
	}
	return conn, func() { conn.Close() }
}

func TestSendReceiveEcho(t *testing.T) {
	server, cleanup := fakeController(t)
	defer cleanup()

	go func() {
		buf := make([]byte, 1500)
		for {
			n, peer, err := server.ReadFromUDP(buf)
			if err != nil {
				return
			}
			_, _ = server.WriteToUDP(buf[:n], peer)
		}
	}()

	u, err := Dial("127.0.0.1")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer u.Close()

	want := []byte{1, 2, 3, 4, 5}
	if err := u.Send(want); err != nil {
		t.Fatalf("Send: %v", err)
	}

	buf := make([]byte, 1500)
	n, err := u.Receive(buf, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	got := buf[:n]
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestReceiveTimeout(t *testing.T) {
	server, cleanup := fakeController(t)
	defer cleanup()
	_ = server // bound but never replies

	u, err := Dial("127.0.0.1")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer u.Close()

	buf := make([]byte, 1500)
	_, err = u.Receive(buf, time.Millisecond)
	if err != ErrTimeout {
		t.Fatalf("Receive error = %v, want ErrTimeout", err)
	}
}
