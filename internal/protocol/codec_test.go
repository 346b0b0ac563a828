package protocol

import (
	"bytes"
	"testing"
)

func TestHandshakeRoundTrip(t *testing.T) {
	req := HandshakeRequest{Model: uint8(ModelWXAIV0Leader), NumJointsExpected: 7}
	encoded := EncodeHandshakeRequest(req)
	if len(encoded) != 2 {
		t.Fatalf("encoded handshake request len = %d, want 2", len(encoded))
	}

	respPayload := []byte{7, 0, 0, 0, 0}
	respPayload[1], respPayload[2], respPayload[3], respPayload[4] = 0x2a, 0, 0, 0
	resp, err := DecodeHandshakeResponse(respPayload)
	if err != nil {
		t.Fatalf("DecodeHandshakeResponse: %v", err)
	}
	if resp.NumJoints != 7 || resp.FirmwareVersion != 0x2a {
		t.Errorf("got %+v", resp)
	}
}

func TestJointInputsEncodedSizeAndOutputsRoundTrip(t *testing.T) {
	inputs := []JointInputWire{
		{Mode: 1, Field0: 0.5, Field1: -1.25, Field2: 3.0},
		{Mode: 3, Field0: -9.9, Field1: 0, Field2: 0},
	}
	encoded := EncodeJointInputs(inputs)
	if len(encoded) != len(inputs)*jointInputWireSize {
		t.Fatalf("encoded len = %d, want %d", len(encoded), len(inputs)*jointInputWireSize)
	}

	// set_joint_inputs and get_joint_outputs share the output wire shape;
	// round-trip that one directly since JointInputWire has no decoder
	// (the controller never echoes inputs back).
	outputs := []JointOutputWire{
		{Position: 1, Velocity: 2, Effort: 3, ExternalEffort: 4},
		{Position: -1, Velocity: -2, Effort: -3, ExternalEffort: -4},
	}
	raw := make([]byte, 0, len(outputs)*jointOutputWireSize)
	for _, o := range outputs {
		buf := make([]byte, jointOutputWireSize)
		putFloat32(buf, 0, o.Position)
		putFloat32(buf, 4, o.Velocity)
		putFloat32(buf, 8, o.Effort)
		putFloat32(buf, 12, o.ExternalEffort)
		raw = append(raw, buf...)
	}
	decoded, err := DecodeJointOutputs(raw, len(outputs))
	if err != nil {
		t.Fatalf("DecodeJointOutputs: %v", err)
	}
	for i := range outputs {
		if decoded[i] != outputs[i] {
			t.Errorf("joint %d: got %+v, want %+v", i, decoded[i], outputs[i])
		}
	}
}

func TestDecodeJointOutputsWrongSize(t *testing.T) {
	if _, err := DecodeJointOutputs(make([]byte, 5), 1); err == nil {
		t.Fatal("expected error for wrong-size payload")
	}
}

func TestConfigurationRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	encoded, err := EncodeSetConfiguration(AddrEffortCorrection, payload)
	if err != nil {
		t.Fatalf("EncodeSetConfiguration: %v", err)
	}
	if ConfigurationAddress(encoded[0]) != AddrEffortCorrection {
		t.Errorf("address byte = %d, want %d", encoded[0], AddrEffortCorrection)
	}
	if !bytes.Equal(encoded[1:1+len(payload)], payload) {
		t.Errorf("payload prefix mismatch")
	}
	if len(encoded) != 1+ConfigPayloadSize {
		t.Errorf("encoded len = %d, want %d", len(encoded), 1+ConfigPayloadSize)
	}

	respRaw := make([]byte, ConfigPayloadSize)
	copy(respRaw, payload)
	resp, err := DecodeGetConfigurationResponse(respRaw)
	if err != nil {
		t.Fatalf("DecodeGetConfigurationResponse: %v", err)
	}
	if !bytes.Equal(resp.Payload[:len(payload)], payload) {
		t.Errorf("decoded prefix mismatch")
	}
}

func TestEncodeSetConfigurationTooLarge(t *testing.T) {
	if _, err := EncodeSetConfiguration(AddrEndEffector, make([]byte, ConfigPayloadSize+1)); err == nil {
		t.Fatal("expected error for oversized payload")
	}
}

func TestGetLogResponseText(t *testing.T) {
	var raw [LogPayloadSize]byte
	copy(raw[:], "joint 3 overheated")
	resp, err := DecodeGetLogResponse(raw[:])
	if err != nil {
		t.Fatalf("DecodeGetLogResponse: %v", err)
	}
	if got := resp.Text(); got != "joint 3 overheated" {
		t.Errorf("Text() = %q, want %q", got, "joint 3 overheated")
	}
}

func TestParseResponseHeader(t *testing.T) {
	frame := []byte{byte(GetLog), byte(StatusOK), 1, 2, 3}
	ind, status, rest, err := ParseResponseHeader(frame)
	if err != nil {
		t.Fatalf("ParseResponseHeader: %v", err)
	}
	if ind != GetLog || status != StatusOK || !bytes.Equal(rest, []byte{1, 2, 3}) {
		t.Errorf("got ind=%v status=%v rest=%v", ind, status, rest)
	}

	if _, _, _, err := ParseResponseHeader([]byte{1}); err == nil {
		t.Fatal("expected error for short frame")
	}
}

func TestRequestPrependsIndicator(t *testing.T) {
	out := Request(SetHome, nil)
	if len(out) != 1 || out[0] != byte(SetHome) {
		t.Errorf("Request(SetHome, nil) = %v", out)
	}
}
