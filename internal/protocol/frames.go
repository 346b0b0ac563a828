package protocol

// ConfigPayloadSize is the fixed width of a configuration RPC payload.
// It is large enough to carry the widest configuration field (the
// end-effector mass/inertia struct); shorter fields are packed at the
// front and the remainder is zero.
const ConfigPayloadSize = 40

// LogPayloadSize is the fixed width of a get_log response payload,
// NUL-padded UTF-8.
const LogPayloadSize = 128

// JointInputWire is the fixed-size per-joint payload carried by
// set_joint_inputs. Field0/Field1/Field2 are reinterpreted according to
// Mode: position uses (position, ff_velocity, ff_acceleration), velocity
// uses (velocity, ff_acceleration, unused), effort uses (effort, unused,
// unused), idle uses none.
type JointInputWire struct {
	Mode   uint8
	Field0 float32
	Field1 float32
	Field2 float32
}

// JointOutputWire is the fixed-size per-joint feedback payload shared by
// set_joint_inputs and get_joint_outputs responses.
type JointOutputWire struct {
	Position       float32
	Velocity       float32
	Effort         float32
	ExternalEffort float32
}

// HandshakeRequest is the handshake indicator's outgoing payload.
type HandshakeRequest struct {
	Model            uint8
	NumJointsExpected uint8
}

// HandshakeResponse is the handshake indicator's incoming payload.
type HandshakeResponse struct {
	NumJoints       uint8
	FirmwareVersion uint32
}

// SetConfigurationRequest is the set_configuration indicator's outgoing
// payload: an address plus a fixed-width opaque payload.
type SetConfigurationRequest struct {
	Address ConfigurationAddress
	Payload [ConfigPayloadSize]byte
}

// GetConfigurationRequest is the get_configuration indicator's outgoing
// payload.
type GetConfigurationRequest struct {
	Address ConfigurationAddress
}

// GetConfigurationResponse is the get_configuration indicator's incoming
// payload.
type GetConfigurationResponse struct {
	Payload [ConfigPayloadSize]byte
}

// GetLogResponse is the get_log indicator's incoming payload.
type GetLogResponse struct {
	Bytes [LogPayloadSize]byte
}

// Text decodes the NUL-padded log payload to a string, trimmed at the
// first NUL.
func (r GetLogResponse) Text() string {
	n := len(r.Bytes)
	for i, b := range r.Bytes {
		if b == 0 {
			n = i
			break
		}
	}
	return string(r.Bytes[:n])
}
