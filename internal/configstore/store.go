// Package configstore mirrors the controller's configuration fields on
// the driver side. Setters are write-through: the controller is updated
// first, then the local mirror on success; getters always read the
// controller and refresh the mirror.
package configstore

import (
	"fmt"
	"net"

	"gonum.org/v1/gonum/mat"
)

// IPMethod selects how the controller obtains its IP address.
type IPMethod uint8

const (
	IPMethodManual IPMethod = iota
	IPMethodDHCP
)

// EndEffector is the mass/inertia struct for the attached end effector.
// The inertia tensor is a symmetric 3x3 matrix about the effector's
// center of mass, represented with gonum.org/v1/gonum/mat.
type EndEffector struct {
	MassKg  float64
	Inertia *mat.SymDense // 3x3, kg*m^2
}

// NewEndEffector builds an EndEffector from a mass and the six unique
// entries of a symmetric 3x3 inertia tensor (Ixx, Iyy, Izz, Ixy, Ixz,
// Iyz).
func NewEndEffector(massKg, ixx, iyy, izz, ixy, ixz, iyz float64) EndEffector {
	inertia := mat.NewSymDense(3, []float64{
		ixx, ixy, ixz,
		ixy, iyy, iyz,
		ixz, iyz, izz,
	})
	return EndEffector{MassKg: massKg, Inertia: inertia}
}

// Flatten returns the mass followed by the six unique inertia entries,
// the layout written into the wire configuration payload.
func (e EndEffector) Flatten() [7]float64 {
	return [7]float64{
		e.MassKg,
		e.Inertia.At(0, 0), e.Inertia.At(1, 1), e.Inertia.At(2, 2),
		e.Inertia.At(0, 1), e.Inertia.At(0, 2), e.Inertia.At(1, 2),
	}
}

// Mirror is the driver-side copy of the controller's configuration.
// num_joints is fixed at configure time and immutable thereafter.
type Mirror struct {
	NumJoints int

	FactoryResetFlag bool
	IPMethod         IPMethod
	ManualIP         net.IP
	DNS              net.IP
	Gateway          net.IP
	Subnet           net.IP

	// EffortCorrection is a per-joint multiplier in [0.5, 2.0].
	EffortCorrection []float64

	// GripperForceLimitScalingFactor and TrajectoryTimeMaxFactor are
	// both in [0.0, 1.0].
	GripperForceLimitScalingFactor float64
	TrajectoryTimeMaxFactor        float64

	EndEffector EndEffector

	// Modes is the driver's cached per-joint control mode, which must
	// match the controller's copy or set_joint_inputs fails with
	// robot_input_mode_mismatch.
	Modes []uint8 // tetherarm.Mode values, stored as the wire byte
}

// NewMirror allocates a Mirror sized for numJoints, with effort
// correction, GripperForceLimitScalingFactor and TrajectoryTimeMaxFactor
// defaulted to 1.0 and all other numeric fields zeroed.
func NewMirror(numJoints int) *Mirror {
	m := &Mirror{
		NumJoints:                      numJoints,
		EffortCorrection:               make([]float64, numJoints),
		GripperForceLimitScalingFactor: 1.0,
		TrajectoryTimeMaxFactor:        1.0,
		Modes:                          make([]uint8, numJoints),
	}
	for i := range m.EffortCorrection {
		m.EffortCorrection[i] = 1.0
	}
	return m
}

// ValidateEffortCorrection checks every entry is in [0.5, 2.0] and the
// vector length matches NumJoints.
func (m *Mirror) ValidateEffortCorrection(values []float64) error {
	if len(values) != m.NumJoints {
		return fmt.Errorf("configstore: effort_correction has length %d, want %d", len(values), m.NumJoints)
	}
	for i, v := range values {
		if v < 0.5 || v > 2.0 {
			return fmt.Errorf("configstore: effort_correction[%d] = %v out of range [0.5, 2.0]", i, v)
		}
	}
	return nil
}

// ValidateUnitInterval checks v is in [0.0, 1.0], used for both
// GripperForceLimitScalingFactor and TrajectoryTimeMaxFactor.
func ValidateUnitInterval(name string, v float64) error {
	if v < 0.0 || v > 1.0 {
		return fmt.Errorf("configstore: %s = %v out of range [0.0, 1.0]", name, v)
	}
	return nil
}

// ValidateIPv4 parses s as a dotted-quad IPv4 address.
func ValidateIPv4(name, s string) (net.IP, error) {
	ip := net.ParseIP(s)
	if ip == nil || ip.To4() == nil {
		return nil, fmt.Errorf("configstore: %s %q is not a valid IPv4 address", name, s)
	}
	return ip.To4(), nil
}
