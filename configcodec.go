package tetherarm

import (
	"encoding/binary"
	"math"
	"net"
)

var cfgByteOrder = binary.LittleEndian

func encodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

func decodeBool(b []byte) bool {
	return len(b) > 0 && b[0] != 0
}

func encodeIPv4(ip net.IP) []byte {
	v4 := ip.To4()
	if v4 == nil {
		v4 = net.IPv4zero.To4()
	}
	return []byte(v4)
}

func decodeIPv4(b []byte) net.IP {
	ip := make(net.IP, 4)
	copy(ip, b[:4])
	return ip
}

func encodeFloat32Slice(values []float64) []byte {
	buf := make([]byte, len(values)*4)
	for i, v := range values {
		cfgByteOrder.PutUint32(buf[i*4:i*4+4], math.Float32bits(float32(v)))
	}
	return buf
}

func decodeFloat32Slice(b []byte, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(math.Float32frombits(cfgByteOrder.Uint32(b[i*4 : i*4+4])))
	}
	return out
}

func encodeFloat32(v float64) []byte {
	buf := make([]byte, 4)
	cfgByteOrder.PutUint32(buf, math.Float32bits(float32(v)))
	return buf
}

func decodeFloat32(b []byte) float64 {
	return float64(math.Float32frombits(cfgByteOrder.Uint32(b[:4])))
}

func encodeEndEffector(massKg, ixx, iyy, izz, ixy, ixz, iyz float64) []byte {
	return encodeFloat32Slice([]float64{massKg, ixx, iyy, izz, ixy, ixz, iyz})
}

func decodeEndEffector(b []byte) (massKg, ixx, iyy, izz, ixy, ixz, iyz float64) {
	v := decodeFloat32Slice(b, 7)
	return v[0], v[1], v[2], v[3], v[4], v[5], v[6]
}
