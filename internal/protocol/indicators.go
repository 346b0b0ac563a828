// Package protocol implements the wire codec for the seven request/
// response frame kinds exchanged with the arm controller: little-endian,
// packed, fixed size per indicator, no length prefix.
package protocol

// Indicator identifies a request/response frame kind. It is the first
// byte of every request and is echoed as the first byte of every
// response.
type Indicator uint8

const (
	Handshake Indicator = iota
	SetJointInputs
	GetJointOutputs
	SetHome
	SetConfiguration
	GetConfiguration
	GetLog
)

func (i Indicator) String() string {
	switch i {
	case Handshake:
		return "handshake"
	case SetJointInputs:
		return "set_joint_inputs"
	case GetJointOutputs:
		return "get_joint_outputs"
	case SetHome:
		return "set_home"
	case SetConfiguration:
		return "set_configuration"
	case GetConfiguration:
		return "get_configuration"
	case GetLog:
		return "get_log"
	default:
		return "unknown_indicator"
	}
}

// Status is the byte following the echoed indicator in every response.
// Zero means OK; non-zero maps to a controller ErrorState ordinal.
type Status uint8

const StatusOK Status = 0

// ModelID distinguishes the arm model/role sent during handshake.
type ModelID uint8

const (
	ModelWXAIV0Leader ModelID = iota
	ModelWXAIV0Follower
)

// ConfigurationAddress is a small ordinal addressing one configuration
// field on the controller.
type ConfigurationAddress uint8

const (
	AddrFactoryResetFlag ConfigurationAddress = iota
	AddrIPMethod
	AddrManualIP
	AddrDNS
	AddrGateway
	AddrSubnet
	AddrEffortCorrection
	AddrErrorState
	AddrModes
	AddrEndEffector
	AddrGripperForceLimitScalingFactor
	AddrTrajectoryTimeMaxFactor
)
