// Package lightproto provides the datagram wire framing for both the
// frame output channel and the control ingress channel. No off-the-shelf
// OSC or lighting-protocol library appears anywhere in the retrieval
// pack (see DESIGN.md), so this follows the teacher's own precedent in
// pkg/artnet/packet.go: a small fixed header built directly with
// encoding/binary.
package lightproto

import (
	"encoding/binary"
	"errors"
)

const (
	// magicID identifies a lightproto datagram, mirroring Art-Net's
	// 8-byte "Art-Net\0" identifier.
	magicID = "LedScn\x00\x00"

	// OpFrame marks an output frame datagram (engine -> controller).
	OpFrame uint16 = 0x4600
	// OpControl marks a control event datagram (client -> engine).
	OpControl uint16 = 0x4700

	// HeaderSize is the fixed header length shared by both packet kinds.
	HeaderSize = 8 + 2 + 1 + 1 + 2 // magic + opcode + sequence + reserved + LED count (frame) or body length (control)
)

var errShortPacket = errors.New("lightproto: packet shorter than header")

// BuildFramePacket lays out an output frame datagram: header followed by
// the RGB byte sequence in ascending LED order (§6, 3 bytes per LED).
func BuildFramePacket(sequence byte, rgb []byte) []byte {
	packet := make([]byte, HeaderSize+len(rgb))
	copy(packet[0:8], magicID)
	binary.BigEndian.PutUint16(packet[8:10], OpFrame)
	packet[10] = sequence
	packet[11] = 0
	binary.BigEndian.PutUint16(packet[12:14], uint16(len(rgb)/3))
	copy(packet[HeaderSize:], rgb)
	return packet
}

// ParseFramePacket extracts the RGB payload from a frame datagram,
// validating the magic and opcode. Used by test tooling and by any
// downstream simulator in this repo's test suite.
func ParseFramePacket(packet []byte) ([]byte, error) {
	if len(packet) < HeaderSize {
		return nil, errShortPacket
	}
	if string(packet[0:8]) != magicID {
		return nil, errors.New("lightproto: bad magic")
	}
	if binary.BigEndian.Uint16(packet[8:10]) != OpFrame {
		return nil, errors.New("lightproto: not a frame packet")
	}
	return packet[HeaderSize:], nil
}
