package tetherarm

import (
	"time"
)

// MoveOptions configures one setpoint call. The zero value means:
// GoalTime -> DefaultGoalTime, blocking (NonBlocking is false by
// default, so a plain MoveOptions{} blocks), and zero feedforward
// terms.
type MoveOptions struct {
	GoalTime                time.Duration
	NonBlocking             bool
	FeedforwardVelocity     float64
	FeedforwardAcceleration float64
}

func (o MoveOptions) goalTime() time.Duration {
	if o.GoalTime <= 0 {
		return DefaultGoalTime
	}
	return o.GoalTime
}

func (d *Driver) allJointIndices() []int {
	idx := make([]int, d.numJoints)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func armJointIndices() []int {
	idx := make([]int, NumArmJoints)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// startMoves re-seeds each indexed joint's trajectory from freshly
// measured state to goals[k] under a single preempt+data critical
// section, so a multi-joint call is atomic with respect to the daemon.
// It does not itself check that the joint's configured mode agrees
// with the move being requested: the wire frame always carries
// whatever mode the controller was last told (d.cfg.Modes), and a
// genuine mismatch surfaces as a latched robot_input_mode_mismatch
// from the controller's own status byte on the next daemon cycle.
func (d *Driver) startMoves(indices []int, mode Mode, goals []float64, opts MoveOptions) (time.Time, error) {
	var endTime time.Time
	err := d.withExclusiveIO(func() error {
		now := time.Now()
		goalTime := opts.goalTime().Seconds()
		for k, idx := range indices {
			cur := d.jointOutputs[idx]
			switch mode {
			case ModePosition:
				d.traj.StartPositionMove(idx, now, goalTime,
					float64(cur.Position), float64(cur.Velocity), goals[k],
					opts.FeedforwardVelocity, opts.FeedforwardAcceleration)
			case ModeVelocity:
				d.traj.StartVelocityMove(idx, now, goalTime,
					float64(cur.Velocity), goals[k], opts.FeedforwardAcceleration)
			case ModeEffort:
				d.traj.StartEffortMove(idx, now, goalTime, float64(cur.Effort), goals[k])
			}
		}
		endTime = d.traj.MaxEndTime(indices)
		return nil
	})
	return endTime, err
}

// blockUntil sleeps until t, uninterruptibly, and then re-checks for a
// fatal error the daemon may have latched while the caller slept.
func (d *Driver) blockUntil(t time.Time) error {
	if wait := time.Until(t); wait > 0 {
		time.Sleep(wait)
	}
	return d.checkReady()
}

func (d *Driver) move(indices []int, mode Mode, goals []float64, opts MoveOptions) error {
	if err := d.checkReady(); err != nil {
		return err
	}
	endTime, err := d.startMoves(indices, mode, goals, opts)
	if err != nil {
		return err
	}
	if opts.NonBlocking {
		return nil
	}
	return d.blockUntil(endTime)
}

// --- position ---

func (d *Driver) SetAllPositions(positions []float64, opts MoveOptions) error {
	if err := validateVectorLen(len(positions), d.numJoints, "positions"); err != nil {
		return err
	}
	return d.move(d.allJointIndices(), ModePosition, positions, opts)
}

func (d *Driver) SetArmPositions(positions []float64, opts MoveOptions) error {
	if err := validateVectorLen(len(positions), NumArmJoints, "arm positions"); err != nil {
		return err
	}
	return d.move(armJointIndices(), ModePosition, positions, opts)
}

func (d *Driver) SetGripperPosition(position float64, opts MoveOptions) error {
	return d.move([]int{GripperJoint}, ModePosition, []float64{position}, opts)
}

func (d *Driver) SetJointPosition(index int, position float64, opts MoveOptions) error {
	if err := validateJointIndex(index); err != nil {
		return err
	}
	return d.move([]int{index}, ModePosition, []float64{position}, opts)
}

// --- velocity ---

func (d *Driver) SetAllVelocities(velocities []float64, opts MoveOptions) error {
	if err := validateVectorLen(len(velocities), d.numJoints, "velocities"); err != nil {
		return err
	}
	return d.move(d.allJointIndices(), ModeVelocity, velocities, opts)
}

func (d *Driver) SetArmVelocities(velocities []float64, opts MoveOptions) error {
	if err := validateVectorLen(len(velocities), NumArmJoints, "arm velocities"); err != nil {
		return err
	}
	return d.move(armJointIndices(), ModeVelocity, velocities, opts)
}

func (d *Driver) SetGripperVelocity(velocity float64, opts MoveOptions) error {
	return d.move([]int{GripperJoint}, ModeVelocity, []float64{velocity}, opts)
}

func (d *Driver) SetJointVelocity(index int, velocity float64, opts MoveOptions) error {
	if err := validateJointIndex(index); err != nil {
		return err
	}
	return d.move([]int{index}, ModeVelocity, []float64{velocity}, opts)
}

// --- effort ---

func (d *Driver) SetAllEfforts(efforts []float64, opts MoveOptions) error {
	if err := validateVectorLen(len(efforts), d.numJoints, "efforts"); err != nil {
		return err
	}
	return d.move(d.allJointIndices(), ModeEffort, efforts, opts)
}

func (d *Driver) SetArmEfforts(efforts []float64, opts MoveOptions) error {
	if err := validateVectorLen(len(efforts), NumArmJoints, "arm efforts"); err != nil {
		return err
	}
	return d.move(armJointIndices(), ModeEffort, efforts, opts)
}

func (d *Driver) SetGripperEffort(effort float64, opts MoveOptions) error {
	return d.move([]int{GripperJoint}, ModeEffort, []float64{effort}, opts)
}

func (d *Driver) SetJointEffort(index int, effort float64, opts MoveOptions) error {
	if err := validateJointIndex(index); err != nil {
		return err
	}
	return d.move([]int{index}, ModeEffort, []float64{effort}, opts)
}

// --- feedback ---

// GetPositions returns every joint's last-received position. It never
// touches the wire: the daemon refreshes joint feedback every cycle.
func (d *Driver) GetPositions() ([]float64, error) {
	return d.getFeedback(func(o JointOutput) float64 { return float64(o.Position) })
}

func (d *Driver) GetVelocities() ([]float64, error) {
	return d.getFeedback(func(o JointOutput) float64 { return float64(o.Velocity) })
}

func (d *Driver) GetEfforts() ([]float64, error) {
	return d.getFeedback(func(o JointOutput) float64 { return float64(o.Effort) })
}

func (d *Driver) GetExternalEfforts() ([]float64, error) {
	return d.getFeedback(func(o JointOutput) float64 { return float64(o.ExternalEffort) })
}

func (d *Driver) getFeedback(field func(JointOutput) float64) ([]float64, error) {
	if err := d.checkReady(); err != nil {
		return nil, err
	}
	d.data.Lock()
	defer d.data.Unlock()
	out := make([]float64, d.numJoints)
	for i, o := range d.jointOutputs {
		out[i] = field(o)
	}
	return out, nil
}

// GetJointOutput returns one joint's full feedback record.
func (d *Driver) GetJointOutput(index int) (JointOutput, error) {
	if err := d.checkReady(); err != nil {
		return JointOutput{}, err
	}
	if err := validateJointIndex(index); err != nil {
		return JointOutput{}, err
	}
	d.data.Lock()
	defer d.data.Unlock()
	return d.jointOutputs[index], nil
}
