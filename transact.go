package tetherarm

import (
	"errors"
	"fmt"
	"time"

	"github.com/arobi/tetherarm/internal/protocol"
	"github.com/arobi/tetherarm/internal/transport"
)

// withExclusiveIO runs fn with preempt acquired then released early and
// data held for fn's duration — the |-1-|-12-|-2-| slot pattern used by
// every main-thread call that touches the wire outside the daemon's own
// periodic slots.
func (d *Driver) withExclusiveIO(fn func() error) error {
	d.preempt.Lock()
	d.data.Lock()
	d.preempt.Unlock()
	defer d.data.Unlock()
	return fn()
}

// transactLocked sends one request and waits for its reply, resending on
// receive timeout for at most MaxRetransmissionAttempts attempts in
// total (the first one included). The caller must already hold data.
// onExhausted is the ErrorState latched if every attempt times out.
func (d *Driver) transactLocked(ind protocol.Indicator, payload []byte, onExhausted ErrorState) ([]byte, error) {
	txID := newTransactionID()
	frame := protocol.Request(ind, payload)
	expected := protocol.ExpectedResponseSize(ind, d.numJoints)
	buf := make([]byte, 2+expected+64)

	var attempt int
	for attempt = 0; attempt < MaxRetransmissionAttempts; attempt++ {
		if err := d.conn.Send(frame); err != nil {
			return nil, d.latch(newDriverError(ErrorUDPInitFailed, err.Error()))
		}

		cycleStart := time.Now()
		n, err := d.conn.Receive(buf, ReceiveTimeout)
		d.metrics.cycleLatency.Observe(time.Since(cycleStart).Seconds())

		if errors.Is(err, transport.ErrTimeout) {
			d.metrics.retransmissions.Inc()
			if d.log != nil {
				d.log.WithFields(map[string]interface{}{
					"tx":        txID,
					"indicator": ind.String(),
					"attempt":   attempt,
				}).Debug("udp receive timeout, retrying")
			}
			continue
		}
		if err != nil {
			return nil, d.latch(newDriverError(onExhausted, err.Error()))
		}

		gotInd, status, rest, err := protocol.ParseResponseHeader(buf[:n])
		if err != nil {
			return nil, d.latch(newDriverError(ErrorInvalidRobotCommandSize, err.Error()))
		}
		if gotInd != ind {
			return nil, d.latch(newDriverError(ErrorInvalidRobotCommand,
				fmt.Sprintf("expected echoed indicator %s, got %s", ind, gotInd)))
		}
		if status != protocol.StatusOK {
			kind := ErrorState(status)
			msg, _ := d.getLogLocked()
			return nil, d.latch(newDriverError(kind, msg))
		}
		if expected >= 0 && len(rest) != expected {
			return nil, d.latch(newDriverError(ErrorInvalidRobotCommandSize,
				fmt.Sprintf("%s response payload %d bytes, want %d", ind, len(rest), expected)))
		}

		return rest, nil
	}

	return nil, d.latch(newDriverError(onExhausted,
		fmt.Sprintf("%s: no reply after %d attempts", ind, MaxRetransmissionAttempts)))
}

// handshake performs the configure-time handshake transaction. It is
// called before the daemon exists, so no mutex discipline is needed
// beyond what transactLocked itself assumes (data conceptually free).
func (d *Driver) handshake(model ModelID, numJointsExpected int) error {
	d.data.Lock()
	defer d.data.Unlock()

	req := protocol.EncodeHandshakeRequest(protocol.HandshakeRequest{
		Model:             uint8(model),
		NumJointsExpected: uint8(numJointsExpected),
	})
	rest, err := d.transactLocked(protocol.Handshake, req, ErrorUDPInitFailed)
	if err != nil {
		return err
	}
	resp, err := protocol.DecodeHandshakeResponse(rest)
	if err != nil {
		return d.latch(newDriverError(ErrorInvalidRobotCommandSize, err.Error()))
	}
	if int(resp.NumJoints) != numJointsExpected {
		return d.latch(newDriverError(ErrorInvalidRobotCommand,
			fmt.Sprintf("controller reports %d joints, expected %d", resp.NumJoints, numJointsExpected)))
	}
	d.firmwareVersion = resp.FirmwareVersion
	return nil
}

// getLogLocked retrieves the controller's detailed error log. The
// caller must hold data. On failure it returns an empty string with the
// error and leaves no latched error of its own behind, so it never masks
// the original fatal error being reported.
func (d *Driver) getLogLocked() (string, error) {
	d.fatalMu.Lock()
	prior := d.lastFatal
	d.fatalMu.Unlock()
	rest, err := d.transactLocked(protocol.GetLog, nil, ErrorJointFeedbackFailed)
	if err != nil {
		d.fatalMu.Lock()
		d.lastFatal = prior
		d.fatalMu.Unlock()
		return "", err
	}
	resp, err := protocol.DecodeGetLogResponse(rest)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// SetHome sends the set_home indicator; the controller zeroes its joint
// encoders at the current physical pose.
func (d *Driver) SetHome() error {
	if err := d.checkReady(); err != nil {
		return err
	}
	return d.withExclusiveIO(func() error {
		_, err := d.transactLocked(protocol.SetHome, nil, ErrorJointSetHomeFailed)
		return err
	})
}
