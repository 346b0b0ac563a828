package tetherarm

import (
	"time"

	"github.com/arobi/tetherarm/internal/protocol"
)

// runDaemon is the background control loop. Every slot acquires
// preempt then data, releases preempt early, performs exactly one
// set_joint_inputs transaction (whose reply already carries joint
// feedback, so a separate get_joint_outputs call is never needed on the
// hot path), and releases data. It sleeps 0 between slots, relying on
// the 1 ms receive timeout to pace itself.
func (d *Driver) runDaemon() {
	defer close(d.daemonDone)

	for {
		select {
		case <-d.daemonStop:
			return
		default:
		}

		d.preempt.Lock()
		d.data.Lock()
		d.preempt.Unlock()

		err := d.daemonSlot()

		d.data.Unlock()

		if err != nil {
			// A fatal error was already latched by transactLocked; stop
			// the daemon. The next main-thread call observes lastFatal
			// via checkReady and re-raises it.
			return
		}
	}
}

// daemonSlot builds the outgoing setpoint from each joint's trajectory
// engine, sends it, and stores the decoded feedback. The caller must
// hold data.
func (d *Driver) daemonSlot() error {
	now := time.Now()

	for j := range d.jointInputs {
		mode := Mode(d.cfg.Modes[j])
		y, dy, ddy := d.traj.Evaluate(j, now)
		d.jointInputs[j] = buildJointInputWire(mode, y, dy, ddy)
	}

	payload := protocol.EncodeJointInputs(d.jointInputs)
	rest, err := d.transactLocked(protocol.SetJointInputs, payload, ErrorJointFeedbackFailed)
	if err != nil {
		return err
	}

	outputs, err := protocol.DecodeJointOutputs(rest, d.numJoints)
	if err != nil {
		return err
	}
	for j, o := range outputs {
		d.jointOutputs[j] = JointOutput{
			Position:       o.Position,
			Velocity:       o.Velocity,
			Effort:         o.Effort,
			ExternalEffort: o.ExternalEffort,
		}
	}

	d.metrics.cycles.Inc()
	return nil
}

// buildJointInputWire maps the trajectory engine's (y, dy, ddy) at the
// current time into the mode-specific wire fields: in position mode
// y/dy/ddy are themselves the position setpoint and its
// velocity/acceleration feedforward; in velocity mode y/dy are the
// velocity setpoint and its acceleration feedforward; effort mode
// carries only the ramped value.
func buildJointInputWire(mode Mode, y, dy, ddy float64) protocol.JointInputWire {
	w := protocol.JointInputWire{Mode: uint8(mode)}
	switch mode {
	case ModePosition:
		w.Field0, w.Field1, w.Field2 = float32(y), float32(dy), float32(ddy)
	case ModeVelocity:
		w.Field0, w.Field1 = float32(y), float32(dy)
	case ModeEffort:
		w.Field0 = float32(y)
	case ModeIdle:
		// no payload
	}
	return w
}
