package lightproto

import "testing"

func TestFramePacketRoundTrip(t *testing.T) {
	rgb := []byte{255, 0, 0, 0, 255, 0, 0, 0, 255}
	packet := BuildFramePacket(7, rgb)

	got, err := ParseFramePacket(packet)
	if err != nil {
		t.Fatalf("ParseFramePacket error: %v", err)
	}
	if len(got) != len(rgb) {
		t.Fatalf("payload len = %d, want %d", len(got), len(rgb))
	}
	for i := range rgb {
		if got[i] != rgb[i] {
			t.Fatalf("byte %d = %d, want %d", i, got[i], rgb[i])
		}
	}
}

func TestParseFramePacketRejectsShort(t *testing.T) {
	if _, err := ParseFramePacket([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for short packet")
	}
}

func TestControlPacketRoundTripIntArgs(t *testing.T) {
	ev := ControlEvent{Address: "/change_scene", IntArgs: []int32{42}}
	packet := BuildControlPacket(1, ev)

	got, err := ParseControlPacket(packet)
	if err != nil {
		t.Fatalf("ParseControlPacket error: %v", err)
	}
	if got.Address != ev.Address {
		t.Fatalf("address = %q, want %q", got.Address, ev.Address)
	}
	if len(got.IntArgs) != 1 || got.IntArgs[0] != 42 {
		t.Fatalf("int args = %v, want [42]", got.IntArgs)
	}
}

func TestControlPacketRoundTripStringArg(t *testing.T) {
	ev := ControlEvent{Address: "/load_json", StringArg: "scenes/show1"}
	packet := BuildControlPacket(1, ev)

	got, err := ParseControlPacket(packet)
	if err != nil {
		t.Fatalf("ParseControlPacket error: %v", err)
	}
	if got.StringArg != ev.StringArg {
		t.Fatalf("string arg = %q, want %q", got.StringArg, ev.StringArg)
	}
}

func TestControlPacketRoundTripNoArgs(t *testing.T) {
	ev := ControlEvent{Address: "/pause"}
	packet := BuildControlPacket(1, ev)

	got, err := ParseControlPacket(packet)
	if err != nil {
		t.Fatalf("ParseControlPacket error: %v", err)
	}
	if got.Address != "/pause" || len(got.IntArgs) != 0 || got.StringArg != "" {
		t.Fatalf("got = %+v, want empty-arg /pause event", got)
	}
}

func TestParseControlPacketRejectsMalformed(t *testing.T) {
	packet := BuildControlPacket(1, ControlEvent{Address: "/pause"})
	packet = packet[:len(packet)-2] // truncate the body
	if _, err := ParseControlPacket(packet); err == nil {
		t.Fatal("expected error for truncated control packet")
	}
}
