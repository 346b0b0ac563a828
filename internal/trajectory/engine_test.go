package trajectory

import (
	"testing"
	"time"
)

func TestPositionMoveSettlesAtGoal(t *testing.T) {
	e := NewEngine(7)
	start := time.Now()
	e.StartPositionMove(0, start, 1.0, 0.0, 0.0, 2.0, 0.0, 0.0)

	y, dy, _ := e.Evaluate(0, start)
	if y != 0 {
		t.Errorf("Y(start) = %v, want 0", y)
	}
	if dy != 0 {
		t.Errorf("DY(start) = %v, want 0", dy)
	}

	mid := start.Add(500 * time.Millisecond)
	ymid, _, _ := e.Evaluate(0, mid)
	if ymid <= 0 || ymid >= 2.0 {
		t.Errorf("Y(mid) = %v, want strictly between 0 and 2.0", ymid)
	}

	after := start.Add(2 * time.Second)
	yend, dyend, ddyend := e.Evaluate(0, after)
	if yend != 2.0 {
		t.Errorf("Y(after goal) = %v, want 2.0", yend)
	}
	if dyend != 0 || ddyend != 0 {
		t.Errorf("DY/DDY(after goal) = %v/%v, want 0/0", dyend, ddyend)
	}
	if !e.Done(0, after) {
		t.Error("Done(after goal) = false, want true")
	}
	if e.Done(0, mid) {
		t.Error("Done(mid) = true, want false")
	}
}

func TestVelocityMoveRamp(t *testing.T) {
	e := NewEngine(7)
	start := time.Now()
	e.StartVelocityMove(1, start, 2.0, 0.0, 1.0, 0.0)

	v0, _, _ := e.Evaluate(1, start)
	if v0 != 0 {
		t.Errorf("Y(start) = %v, want 0", v0)
	}
	vEnd, _, _ := e.Evaluate(1, start.Add(3*time.Second))
	if vEnd != 1.0 {
		t.Errorf("Y(past end) = %v, want 1.0", vEnd)
	}
}

func TestEffortMoveIsLinearAtEnds(t *testing.T) {
	e := NewEngine(7)
	start := time.Now()
	e.StartEffortMove(2, start, 1.0, 0.0, 10.0)

	_, dy0, ddy0 := e.Evaluate(2, start)
	if dy0 != 0 || ddy0 != 0 {
		t.Errorf("start derivatives = %v/%v, want 0/0", dy0, ddy0)
	}
	yEnd, dyEnd, ddyEnd := e.Evaluate(2, start.Add(time.Second))
	if yEnd != 10.0 {
		t.Errorf("Y(end) = %v, want 10.0", yEnd)
	}
	if dyEnd != 0 || ddyEnd != 0 {
		t.Errorf("end derivatives = %v/%v, want 0/0", dyEnd, ddyEnd)
	}
}

func TestMaxEndTime(t *testing.T) {
	e := NewEngine(7)
	start := time.Now()
	e.StartPositionMove(0, start, 1.0, 0, 0, 1, 0, 0)
	e.StartPositionMove(1, start, 3.0, 0, 0, 1, 0, 0)
	e.StartPositionMove(2, start, 2.0, 0, 0, 1, 0, 0)

	got := e.MaxEndTime([]int{0, 1, 2})
	want := start.Add(3 * time.Second)
	if !got.Equal(want) {
		t.Errorf("MaxEndTime = %v, want %v", got, want)
	}
}

func TestReseedingAvoidsStaleGoal(t *testing.T) {
	e := NewEngine(7)
	start := time.Now()
	e.StartPositionMove(0, start, 1.0, 0, 0, 5, 0, 0)

	// A new call mid-flight re-seeds from a freshly measured position,
	// not from the stale goal of 5.
	mid := start.Add(200 * time.Millisecond)
	measured, _, _ := e.Evaluate(0, mid)
	e.StartPositionMove(0, mid, 1.0, measured, 0, 1, 0, 0)

	y, _, _ := e.Evaluate(0, mid)
	if y != measured {
		t.Errorf("Y(reseed start) = %v, want measured %v", y, measured)
	}
}
