package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

var byteOrder = binary.LittleEndian

func putFloat32(buf []byte, off int, v float32) {
	byteOrder.PutUint32(buf[off:off+4], math.Float32bits(v))
}

func getFloat32(buf []byte, off int) float32 {
	return math.Float32frombits(byteOrder.Uint32(buf[off : off+4]))
}

// jointInputWireSize is the packed size of one JointInputWire: a mode
// byte followed by three packed float32 fields.
const jointInputWireSize = 1 + 4*3

// jointOutputWireSize is the packed size of one JointOutputWire.
const jointOutputWireSize = 4 * 4

// Request prepends the indicator byte to an already-encoded payload.
func Request(ind Indicator, payload []byte) []byte {
	out := make([]byte, 1+len(payload))
	out[0] = byte(ind)
	copy(out[1:], payload)
	return out
}

// ParseResponseHeader splits a response frame into its echoed indicator,
// status byte, and remaining payload.
func ParseResponseHeader(frame []byte) (Indicator, Status, []byte, error) {
	if len(frame) < 2 {
		return 0, 0, nil, fmt.Errorf("protocol: response frame too short (%d bytes)", len(frame))
	}
	return Indicator(frame[0]), Status(frame[1]), frame[2:], nil
}

// EncodeHandshakeRequest serializes the handshake request payload
// (indicator not included).
func EncodeHandshakeRequest(req HandshakeRequest) []byte {
	return []byte{req.Model, req.NumJointsExpected}
}

// DecodeHandshakeResponse parses the handshake response payload.
func DecodeHandshakeResponse(payload []byte) (HandshakeResponse, error) {
	const size = 1 + 4
	if len(payload) != size {
		return HandshakeResponse{}, fmt.Errorf("protocol: handshake response size %d, want %d", len(payload), size)
	}
	return HandshakeResponse{
		NumJoints:       payload[0],
		FirmwareVersion: byteOrder.Uint32(payload[1:5]),
	}, nil
}

// EncodeJointInputs serializes N joint input payloads for
// set_joint_inputs (indicator not included).
func EncodeJointInputs(inputs []JointInputWire) []byte {
	buf := make([]byte, len(inputs)*jointInputWireSize)
	for i, in := range inputs {
		off := i * jointInputWireSize
		buf[off] = in.Mode
		putFloat32(buf, off+1, in.Field0)
		putFloat32(buf, off+5, in.Field1)
		putFloat32(buf, off+9, in.Field2)
	}
	return buf
}

// DecodeJointOutputs parses N joint output payloads, used both as the
// set_joint_inputs response and the get_joint_outputs response.
func DecodeJointOutputs(payload []byte, n int) ([]JointOutputWire, error) {
	want := n * jointOutputWireSize
	if len(payload) != want {
		return nil, fmt.Errorf("protocol: joint outputs payload size %d, want %d", len(payload), want)
	}
	out := make([]JointOutputWire, n)
	for i := range out {
		off := i * jointOutputWireSize
		out[i] = JointOutputWire{
			Position:       getFloat32(payload, off),
			Velocity:       getFloat32(payload, off+4),
			Effort:         getFloat32(payload, off+8),
			ExternalEffort: getFloat32(payload, off+12),
		}
	}
	return out, nil
}

// EncodeSetConfiguration serializes the set_configuration request
// payload (indicator not included).
func EncodeSetConfiguration(addr ConfigurationAddress, payload []byte) ([]byte, error) {
	if len(payload) > ConfigPayloadSize {
		return nil, fmt.Errorf("protocol: configuration payload %d bytes exceeds max %d", len(payload), ConfigPayloadSize)
	}
	buf := make([]byte, 1+ConfigPayloadSize)
	buf[0] = byte(addr)
	copy(buf[1:], payload)
	return buf, nil
}

// EncodeGetConfiguration serializes the get_configuration request
// payload.
func EncodeGetConfiguration(addr ConfigurationAddress) []byte {
	return []byte{byte(addr)}
}

// DecodeGetConfigurationResponse parses the get_configuration response
// payload.
func DecodeGetConfigurationResponse(payload []byte) (GetConfigurationResponse, error) {
	if len(payload) != ConfigPayloadSize {
		return GetConfigurationResponse{}, fmt.Errorf("protocol: configuration response size %d, want %d", len(payload), ConfigPayloadSize)
	}
	var resp GetConfigurationResponse
	copy(resp.Payload[:], payload)
	return resp, nil
}

// DecodeGetLogResponse parses the get_log response payload.
func DecodeGetLogResponse(payload []byte) (GetLogResponse, error) {
	if len(payload) != LogPayloadSize {
		return GetLogResponse{}, fmt.Errorf("protocol: log response size %d, want %d", len(payload), LogPayloadSize)
	}
	var resp GetLogResponse
	copy(resp.Bytes[:], payload)
	return resp, nil
}

// ExpectedResponseSize returns the expected payload size (after the
// indicator+status header) for a response to ind, given the configured
// joint count.
func ExpectedResponseSize(ind Indicator, numJoints int) int {
	switch ind {
	case Handshake:
		return 1 + 4
	case SetJointInputs, GetJointOutputs:
		return numJoints * jointOutputWireSize
	case SetHome:
		return 0
	case SetConfiguration:
		return 0
	case GetConfiguration:
		return ConfigPayloadSize
	case GetLog:
		return LogPayloadSize
	default:
		return -1
	}
}
