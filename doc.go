// Package tetherarm drives a tethered six-joint-plus-gripper robotic arm
// over UDP. It keeps a real-time command/response loop alive with the
// on-arm controller while exposing a blocking, synchronous API for
// commanding joint positions, velocities, and efforts, and for reading
// back joint state.
//
// A Driver instance moves through unconfigured -> running -> cleaned.
// Configure binds the socket, handshakes with the controller, and starts
// a background daemon that streams setpoints every cycle; Cleanup stops
// the daemon and releases the socket. Every other exported method is a
// blocking call from whatever goroutine owns the Driver — a Driver is
// not safe for concurrent use by more than one caller goroutine.
package tetherarm
