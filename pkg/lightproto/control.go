package lightproto

import (
	"encoding/binary"
	"errors"
)

// ControlEvent is the decoded form of one control datagram (§6's address
// table). Exactly one of IntArgs or StringArg is meaningful per address;
// the engine-facing internal/control package only ever reads these two
// fields, so swapping this wire format never touches engine code.
type ControlEvent struct {
	Address   string
	IntArgs   []int32
	StringArg string
}

const (
	argKindInt32  byte = 0
	argKindString byte = 1
)

var (
	errMalformed = errors.New("lightproto: malformed control packet")
)

// BuildControlPacket encodes a ControlEvent into a datagram: header,
// then a length-prefixed address string, then each argument tagged with
// its kind.
func BuildControlPacket(sequence byte, ev ControlEvent) []byte {
	body := make([]byte, 0, 64)
	body = appendString(body, ev.Address)

	switch {
	case ev.StringArg != "":
		body = append(body, 1, argKindString)
		body = appendString(body, ev.StringArg)
	default:
		body = append(body, byte(len(ev.IntArgs)))
		for _, v := range ev.IntArgs {
			body = append(body, argKindInt32)
			var buf [4]byte
			binary.BigEndian.PutUint32(buf[:], uint32(v))
			body = append(body, buf[:]...)
		}
	}

	packet := make([]byte, HeaderSize+len(body))
	copy(packet[0:8], magicID)
	binary.BigEndian.PutUint16(packet[8:10], OpControl)
	packet[10] = sequence
	packet[11] = 0
	binary.BigEndian.PutUint16(packet[12:14], uint16(len(body)))
	copy(packet[HeaderSize:], body)
	return packet
}

// ParseControlPacket decodes a control datagram into a ControlEvent.
// A packet shorter than the header returns errShortPacket; any other
// structural inconsistency (bad magic or opcode, truncated body, bad arg
// tag) returns errMalformed. The caller counts either as MalformedInput
// (§7) without inspecting the error further.
func ParseControlPacket(packet []byte) (ControlEvent, error) {
	if len(packet) < HeaderSize {
		return ControlEvent{}, errShortPacket
	}
	if string(packet[0:8]) != magicID {
		return ControlEvent{}, errMalformed
	}
	if binary.BigEndian.Uint16(packet[8:10]) != OpControl {
		return ControlEvent{}, errMalformed
	}

	body := packet[HeaderSize:]
	addr, rest, err := readString(body)
	if err != nil {
		return ControlEvent{}, errMalformed
	}
	if len(rest) < 1 {
		return ControlEvent{}, errMalformed
	}
	count := int(rest[0])
	rest = rest[1:]

	ev := ControlEvent{Address: addr}
	for i := 0; i < count; i++ {
		if len(rest) < 1 {
			return ControlEvent{}, errMalformed
		}
		kind := rest[0]
		rest = rest[1:]
		switch kind {
		case argKindInt32:
			if len(rest) < 4 {
				return ControlEvent{}, errMalformed
			}
			ev.IntArgs = append(ev.IntArgs, int32(binary.BigEndian.Uint32(rest[:4])))
			rest = rest[4:]
		case argKindString:
			s, r, err := readString(rest)
			if err != nil {
				return ControlEvent{}, errMalformed
			}
			ev.StringArg = s
			rest = r
		default:
			return ControlEvent{}, errMalformed
		}
	}

	return ev, nil
}

func appendString(body []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	body = append(body, lenBuf[:]...)
	return append(body, s...)
}

func readString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, errMalformed
	}
	n := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return "", nil, errMalformed
	}
	return string(b[:n]), b[n:], nil
}
