package tetherarm

import (
	"encoding/binary"
	"errors"
	"math"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/arobi/tetherarm/internal/configstore"
	"github.com/arobi/tetherarm/internal/protocol"
	"github.com/arobi/tetherarm/internal/transport"
)

// fakeController stands in for the on-arm controller: it understands
// every indicator, tracks configuration and per-joint feedback, and
// lets a test script drops and mode desyncs to exercise the fatal-error
// paths a real controller would also trigger.
type fakeController struct {
	mu sync.Mutex

	numJoints int
	conn      *net.UDPConn

	config          [12][protocol.ConfigPayloadSize]byte
	modes           []uint8
	outputs         []protocol.JointOutputWire
	logText         string
	firmwareVersion uint32

	dropCounts map[protocol.Indicator]int
	setCounts  map[protocol.ConfigurationAddress]int
}

func newFakeController(t *testing.T, numJoints int) *fakeController {
	t.Helper()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: transport.ControllerPort}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		t.Skipf("cannot bind controller port %d: %v", transport.ControllerPort, err)
	}
	c := &fakeController{
		numJoints:       numJoints,
		conn:            conn,
		modes:           make([]uint8, numJoints),
		outputs:         make([]protocol.JointOutputWire, numJoints),
		firmwareVersion: 0x00010203,
		dropCounts:      make(map[protocol.Indicator]int),
		setCounts:       make(map[protocol.ConfigurationAddress]int),
	}
	go c.run()
	return c
}

func (c *fakeController) close() { c.conn.Close() }

func (c *fakeController) run() {
	buf := make([]byte, 1500)
	for {
		n, peer, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		frame := append([]byte(nil), buf[:n]...)
		if len(frame) < 1 {
			continue
		}
		ind := protocol.Indicator(frame[0])

		c.mu.Lock()
		if c.dropCounts[ind] > 0 {
			c.dropCounts[ind]--
			c.mu.Unlock()
			continue
		}
		status, payload := c.handleLocked(ind, frame[1:])
		c.mu.Unlock()

		resp := make([]byte, 2+len(payload))
		resp[0] = byte(ind)
		resp[1] = byte(status)
		copy(resp[2:], payload)
		_, _ = c.conn.WriteToUDP(resp, peer)
	}
}

// handleLocked must be called with mu held.
func (c *fakeController) handleLocked(ind protocol.Indicator, payload []byte) (protocol.Status, []byte) {
	switch ind {
	case protocol.Handshake:
		resp := make([]byte, 5)
		resp[0] = byte(c.numJoints)
		binary.LittleEndian.PutUint32(resp[1:], c.firmwareVersion)
		return protocol.StatusOK, resp

	case protocol.SetJointInputs:
		const wireSize = 13
		for j := 0; j < c.numJoints; j++ {
			off := j * wireSize
			mode := payload[off]
			if mode != c.modes[j] {
				return protocol.Status(ErrorRobotInputModeMismatch), nil
			}
		}
		for j := 0; j < c.numJoints; j++ {
			off := j * wireSize
			mode := payload[off]
			f0 := math.Float32frombits(binary.LittleEndian.Uint32(payload[off+1 : off+5]))
			f1 := math.Float32frombits(binary.LittleEndian.Uint32(payload[off+5 : off+9]))
			switch Mode(mode) {
			case ModePosition:
				c.outputs[j].Position = f0
				c.outputs[j].Velocity = f1
			case ModeVelocity:
				c.outputs[j].Velocity = f0
			case ModeEffort:
				c.outputs[j].Effort = f0
			}
		}
		return protocol.StatusOK, encodeJointOutputsWire(c.outputs)

	case protocol.GetJointOutputs:
		return protocol.StatusOK, encodeJointOutputsWire(c.outputs)

	case protocol.SetHome:
		for j := range c.outputs {
			c.outputs[j].Position = 0
		}
		return protocol.StatusOK, nil

	case protocol.SetConfiguration:
		addr := protocol.ConfigurationAddress(payload[0])
		var v [protocol.ConfigPayloadSize]byte
		copy(v[:], payload[1:])
		c.config[addr] = v
		c.setCounts[addr]++
		if addr == protocol.AddrModes {
			copy(c.modes, v[:c.numJoints])
		}
		return protocol.StatusOK, nil

	case protocol.GetConfiguration:
		addr := protocol.ConfigurationAddress(payload[0])
		v := c.config[addr]
		return protocol.StatusOK, v[:]

	case protocol.GetLog:
		buf := make([]byte, protocol.LogPayloadSize)
		copy(buf, c.logText)
		return protocol.StatusOK, buf

	default:
		return protocol.Status(ErrorInvalidRobotCommand), nil
	}
}

func encodeJointOutputsWire(outputs []protocol.JointOutputWire) []byte {
	buf := make([]byte, len(outputs)*16)
	for i, o := range outputs {
		off := i * 16
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(o.Position))
		binary.LittleEndian.PutUint32(buf[off+4:], math.Float32bits(o.Velocity))
		binary.LittleEndian.PutUint32(buf[off+8:], math.Float32bits(o.Effort))
		binary.LittleEndian.PutUint32(buf[off+12:], math.Float32bits(o.ExternalEffort))
	}
	return buf
}

func (c *fakeController) setForcedMode(joint int, m Mode) {
	c.mu.Lock()
	c.modes[joint] = uint8(m)
	c.mu.Unlock()
}

func (c *fakeController) setDropCount(ind protocol.Indicator, n int) {
	c.mu.Lock()
	c.dropCounts[ind] = n
	c.mu.Unlock()
}

func (c *fakeController) setCountOf(addr protocol.ConfigurationAddress) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setCounts[addr]
}

func newTestDriver(t *testing.T) (*Driver, *fakeController) {
	t.Helper()
	fc := newFakeController(t, NumJoints)

	d := New()
	ee := configstore.NewEndEffector(0.5, 0.001, 0.001, 0.001, 0, 0, 0)
	err := d.Configure(Config{
		Model:       ModelWXAIV0Leader,
		EndEffector: ee,
		ServerIP:    "127.0.0.1",
		ClearError:  true,
	})
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Cleanup()
		fc.close()
	})
	return d, fc
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", timeout)
	}
}

func TestHappyPathPositionMove(t *testing.T) {
	d, _ := newTestDriver(t)

	if err := d.SetJointMode(0, ModePosition); err != nil {
		t.Fatalf("SetJointMode: %v", err)
	}

	err := d.SetJointPosition(0, 1.5, MoveOptions{GoalTime: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("SetJointPosition: %v", err)
	}

	waitFor(t, 200*time.Millisecond, func() bool {
		pos, err := d.GetPositions()
		return err == nil && math.Abs(pos[0]-1.5) < 1e-3
	})
}

func TestModeMismatchLatchesFatalError(t *testing.T) {
	d, fc := newTestDriver(t)

	if err := d.SetJointMode(1, ModePosition); err != nil {
		t.Fatalf("SetJointMode: %v", err)
	}
	// Desync the controller's view of joint 1's mode behind the
	// driver's back, simulating a controller-side fault that the
	// write-through mirror cannot see coming.
	fc.setForcedMode(1, ModeVelocity)

	// A concurrent daemon cycle may already observe the desync and
	// latch before this call runs, so its own error (if any) is not
	// asserted here; only the eventual latched state matters.
	_ = d.SetJointPosition(1, 0.2, MoveOptions{GoalTime: 10 * time.Millisecond})

	waitFor(t, 200*time.Millisecond, func() bool {
		_, err := d.GetPositions()
		return err != nil
	})

	_, err := d.GetPositions()
	var de *DriverError
	if !errors.As(err, &de) {
		t.Fatalf("GetPositions error = %v, want *DriverError", err)
	}
	if de.Kind != ErrorRobotInputModeMismatch {
		t.Fatalf("latched kind = %v, want %v", de.Kind, ErrorRobotInputModeMismatch)
	}
}

func TestEffortCorrectionBoundsIsUsageErrorNoWireTraffic(t *testing.T) {
	d, fc := newTestDriver(t)

	before := fc.setCountOf(protocol.AddrEffortCorrection)

	bad := make([]float64, NumJoints)
	for i := range bad {
		bad[i] = 1.0
	}
	bad[2] = 3.0 // out of [0.5, 2.0]

	err := d.SetEffortCorrection(bad)
	if !errors.Is(err, ErrUsage) {
		t.Fatalf("SetEffortCorrection error = %v, want ErrUsage", err)
	}

	after := fc.setCountOf(protocol.AddrEffortCorrection)
	if after != before {
		t.Fatalf("set_configuration(effort_correction) count changed from %d to %d, want no wire traffic", before, after)
	}
}

func TestRetransmissionBudgetExhausted(t *testing.T) {
	d, fc := newTestDriver(t)
	fc.setDropCount(protocol.SetHome, MaxRetransmissionAttempts)

	err := d.SetHome()
	var de *DriverError
	if !errors.As(err, &de) {
		t.Fatalf("SetHome error = %v, want *DriverError", err)
	}
	if de.Kind != ErrorJointSetHomeFailed {
		t.Fatalf("latched kind = %v, want %v", de.Kind, ErrorJointSetHomeFailed)
	}
}

func TestRetransmissionRecoversWithinBudget(t *testing.T) {
	d, fc := newTestDriver(t)
	fc.setDropCount(protocol.SetHome, MaxRetransmissionAttempts-1)

	if err := d.SetHome(); err != nil {
		t.Fatalf("SetHome: %v", err)
	}
}

func TestPreemptionFairness(t *testing.T) {
	d, _ := newTestDriver(t)

	// The daemon is already cycling set_joint_inputs in the
	// background; a foreground call must still win the next slot
	// rather than queue behind many daemon cycles.
	start := time.Now()
	if err := d.SetHome(); err != nil {
		t.Fatalf("SetHome: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("SetHome took %s, want a low-millisecond turnaround", elapsed)
	}
}

func TestFactoryResetRoundTrip(t *testing.T) {
	d, _ := newTestDriver(t)

	if err := d.SetFactoryResetFlag(true); err != nil {
		t.Fatalf("SetFactoryResetFlag: %v", err)
	}
	got, err := d.GetFactoryResetFlag()
	if err != nil {
		t.Fatalf("GetFactoryResetFlag: %v", err)
	}
	if !got {
		t.Fatalf("GetFactoryResetFlag = false, want true")
	}
}
