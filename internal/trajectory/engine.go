// Package trajectory owns one quintic-Hermite interpolator per joint
// plus that joint's trajectory start time, and evaluates every control
// cycle to build the outgoing setpoint. The engine re-seeds each
// interpolator from freshly measured state on every new user call
// (never from the previous goal) so the controller's continuity check
// never sees a discontinuity injected by stale state.
package trajectory

import (
	"time"

	"github.com/arobi/tetherarm/internal/interp"
)

// Segment is one joint's active trajectory.
type Segment struct {
	interpolator *interp.Quintic
	start        time.Time
	goalTime     float64
}

// Engine holds one Segment per joint.
type Engine struct {
	segments []Segment
}

// NewEngine allocates an Engine for numJoints joints, each idling at
// zero until a move is started.
func NewEngine(numJoints int) *Engine {
	segs := make([]Segment, numJoints)
	for i := range segs {
		segs[i] = Segment{interpolator: interp.NewQuintic(0, 0, 0, 0, 0, 0, 0, 0), goalTime: 0}
	}
	return &Engine{segments: segs}
}

// StartPositionMove seeds joint's interpolator from measured
// (curPos, curVel, 0) to (goalPos, ffVel, ffAcc) over goalTime seconds,
// starting at now.
func (e *Engine) StartPositionMove(joint int, now time.Time, goalTime, curPos, curVel, goalPos, ffVel, ffAcc float64) {
	e.segments[joint] = Segment{
		interpolator: interp.NewQuintic(0, goalTime, curPos, goalPos, curVel, ffVel, 0, ffAcc),
		start:        now,
		goalTime:     goalTime,
	}
}

// StartVelocityMove seeds joint's interpolator from measured
// (curVel, 0, 0) to (goalVel, ffAcc, 0) over goalTime seconds.
func (e *Engine) StartVelocityMove(joint int, now time.Time, goalTime, curVel, goalVel, ffAcc float64) {
	e.segments[joint] = Segment{
		interpolator: interp.NewQuintic(0, goalTime, curVel, goalVel, 0, ffAcc, 0, 0),
		start:        now,
		goalTime:     goalTime,
	}
}

// StartEffortMove seeds joint's interpolator as a smooth ramp with zero
// first/second derivatives at both ends (not a straight line) from
// curEffort to goalEffort over goalTime seconds.
func (e *Engine) StartEffortMove(joint int, now time.Time, goalTime, curEffort, goalEffort float64) {
	e.segments[joint] = Segment{
		interpolator: interp.NewQuintic(0, goalTime, curEffort, goalEffort, 0, 0, 0, 0),
		start:        now,
		goalTime:     goalTime,
	}
}

// Evaluate returns (y, dy, ddy) at now for joint, sampling the
// interpolator at now-start clamped to the segment's span.
func (e *Engine) Evaluate(joint int, now time.Time) (y, dy, ddy float64) {
	s := &e.segments[joint]
	elapsed := now.Sub(s.start).Seconds()
	return s.interpolator.Y(elapsed), s.interpolator.DY(elapsed), s.interpolator.DDY(elapsed)
}

// Done reports whether joint's active segment has reached its goal time
// as of now.
func (e *Engine) Done(joint int, now time.Time) bool {
	s := &e.segments[joint]
	return s.interpolator.Done(now.Sub(s.start).Seconds())
}

// EndTime returns the wall-clock time at which joint's active segment
// reaches its goal, start + goalTime.
func (e *Engine) EndTime(joint int) time.Time {
	s := &e.segments[joint]
	return s.start.Add(time.Duration(s.goalTime * float64(time.Second)))
}

// MaxEndTime returns the latest EndTime among joints, used for blocking
// waits that target more than one joint.
func (e *Engine) MaxEndTime(joints []int) time.Time {
	var max time.Time
	for _, j := range joints {
		if t := e.EndTime(j); t.After(max) {
			max = t
		}
	}
	return max
}
