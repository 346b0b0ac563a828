// Package interp implements the quintic-Hermite boundary interpolator
// used to shape one trajectory segment per joint per control cycle.
package interp

// Quintic is a fifth-degree polynomial f(u) = sum(a_i * u^i), u = x - x0,
// whose value, first, and second derivatives match given boundary
// conditions exactly at u=0 and u=h.
type Quintic struct {
	x0, x1 float64
	y0, y1 float64
	a      [6]float64
}

// NewQuintic solves for the six coefficients matching (y, y', y'') at x0
// and x1. A degenerate span (x1 <= x0) collapses to a constant at y0 —
// the source's "finished trajectory" case, reused for zero-duration
// moves.
func NewQuintic(x0, x1, y0, y1, dy0, dy1, ddy0, ddy1 float64) *Quintic {
	q := &Quintic{x0: x0, x1: x1, y0: y0, y1: y1}

	h := x1 - x0
	if h <= 0 {
		q.a[0] = y0
		q.x1 = x0
		q.y1 = y0
		return q
	}

	dy := y1 - y0
	h2 := h * h
	h3 := h2 * h
	h4 := h3 * h
	h5 := h4 * h

	q.a[0] = y0
	q.a[1] = dy0
	q.a[2] = ddy0 / 2
	q.a[3] = (20*dy - (8*dy1+12*dy0)*h - (3*ddy0-ddy1)*h2) / (2 * h3)
	q.a[4] = (-30*dy + (14*dy1+16*dy0)*h + (3*ddy0-2*ddy1)*h2) / (2 * h4)
	q.a[5] = (12*dy - 6*(dy1+dy0)*h - (ddy0-ddy1)*h2) / (2 * h5)

	return q
}

// clamp reports u = x - x0 clamped to [0, h], along with whether x fell
// strictly before x0 or strictly after x1. At the boundaries themselves
// (x == x0 or x == x1) neither flag is set, so callers still evaluate
// the true polynomial there instead of the past-boundary zero.
func (q *Quintic) clamp(x float64) (u float64, before, after bool) {
	if x < q.x0 {
		return 0, true, false
	}
	if x > q.x1 {
		return q.x1 - q.x0, false, true
	}
	return x - q.x0, false, false
}

// Y evaluates the interpolated value at x, clamped to [x0, x1].
func (q *Quintic) Y(x float64) float64 {
	u, before, after := q.clamp(x)
	if before {
		return q.y0
	}
	if after {
		return q.y1
	}
	a := q.a
	return a[0] + u*(a[1]+u*(a[2]+u*(a[3]+u*(a[4]+u*a[5]))))
}

// DY evaluates the first derivative at x, clamped. Strictly outside
// [x0, x1] the derivative is zero, matching "trajectory finished"
// semantics; at the boundaries themselves it is the true dy0/dy1.
func (q *Quintic) DY(x float64) float64 {
	u, before, after := q.clamp(x)
	if before || after {
		return 0
	}
	a := q.a
	return a[1] + u*(2*a[2]+u*(3*a[3]+u*(4*a[4]+u*5*a[5])))
}

// DDY evaluates the second derivative at x, clamped. Zero strictly
// outside [x0, x1], same reasoning as DY.
func (q *Quintic) DDY(x float64) float64 {
	u, before, after := q.clamp(x)
	if before || after {
		return 0
	}
	a := q.a
	return 2*a[2] + u*(6*a[3]+u*(12*a[4]+u*20*a[5]))
}

// X0 returns the interpolator's start time.
func (q *Quintic) X0() float64 { return q.x0 }

// X1 returns the interpolator's end time.
func (q *Quintic) X1() float64 { return q.x1 }

// Done reports whether x has reached or passed the end boundary.
func (q *Quintic) Done(x float64) bool { return x >= q.x1 }
