package tetherarm

import (
	"errors"
	"fmt"
)

// ErrUsage marks a synchronous usage error: bad argument, wrong call
// sequence. It is never latched and never touches the wire.
var ErrUsage = errors.New("tetherarm: usage error")

// ErrorState is the latched controller/transport error enum from the
// wire protocol's status byte, plus the driver's own udp_init_failed /
// can_init_failed local-transport members.
type ErrorState uint8

const (
	ErrorNone ErrorState = iota
	ErrorUDPInitFailed
	ErrorCANInitFailed
	ErrorJointCommandFailed
	ErrorJointFeedbackFailed
	ErrorJointEnableFailed
	ErrorJointDisableFailed
	ErrorJointSetHomeFailed
	ErrorJointDisabledUnexpectedly
	ErrorJointOverheated
	ErrorInvalidMode
	ErrorInvalidRobotCommand
	ErrorInvalidRobotCommandSize
	ErrorInvalidConfigurationAddress
	ErrorInvalidPendingCommand
	ErrorRobotInputModeMismatch
	ErrorRobotInputDiscontinuous
)

var errorStateNames = map[ErrorState]string{
	ErrorNone:                         "none",
	ErrorUDPInitFailed:                "udp_init_failed",
	ErrorCANInitFailed:                "can_init_failed",
	ErrorJointCommandFailed:           "joint_command_failed",
	ErrorJointFeedbackFailed:          "joint_feedback_failed",
	ErrorJointEnableFailed:            "joint_enable_failed",
	ErrorJointDisableFailed:           "joint_disable_failed",
	ErrorJointSetHomeFailed:           "joint_set_home_failed",
	ErrorJointDisabledUnexpectedly:    "joint_disabled_unexpectedly",
	ErrorJointOverheated:              "joint_overheated",
	ErrorInvalidMode:                  "invalid_mode",
	ErrorInvalidRobotCommand:          "invalid_robot_command",
	ErrorInvalidRobotCommandSize:      "invalid_robot_command_size",
	ErrorInvalidConfigurationAddress:  "invalid_configuration_address",
	ErrorInvalidPendingCommand:        "invalid_pending_command",
	ErrorRobotInputModeMismatch:       "robot_input_mode_mismatch",
	ErrorRobotInputDiscontinuous:      "robot_input_discontinuous",
}

func (e ErrorState) String() string {
	if s, ok := errorStateNames[e]; ok {
		return s
	}
	return fmt.Sprintf("error_state(%d)", uint8(e))
}

// DriverError is a latched fatal error: a transport failure or a
// controller-reported ErrorState, carrying the detailed log string
// retrieved via get_log. Usage errors never become a DriverError — they
// are returned synchronously and wrap ErrUsage instead.
type DriverError struct {
	Kind    ErrorState
	Message string
}

func (e *DriverError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tetherarm: %s", e.Kind)
	}
	return fmt.Sprintf("tetherarm: %s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, SomeErrorState-wrapped) match by Kind.
func (e *DriverError) Is(target error) bool {
	var de *DriverError
	if errors.As(target, &de) {
		return de.Kind == e.Kind
	}
	return false
}

func newDriverError(kind ErrorState, message string) *DriverError {
	return &DriverError{Kind: kind, Message: message}
}

// ErrCleaned is returned by every operation after Cleanup has run.
var ErrCleaned = errors.New("tetherarm: driver has been cleaned up")

// ErrNotConfigured is returned by every operation before Configure
// completes successfully.
var ErrNotConfigured = errors.New("tetherarm: driver is not configured")
