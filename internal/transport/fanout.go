// Package transport implements the multi-device output fan-out (C7):
// per-destination LED-range slicing and datagram emission, grounded on
// the teacher's dmx.Service outputDMX/Stop lifecycle.
package transport

import (
	"log"
	"net"
	"strconv"
	"sync"

	"github.com/bbernstein/ledscene-go/internal/color"
	"github.com/bbernstein/ledscene-go/internal/engine"
	"github.com/bbernstein/ledscene-go/internal/telemetry"
	"github.com/bbernstein/ledscene-go/pkg/lightproto"
)

// Destination is one configured remote light controller (§4.7).
type Destination struct {
	IP       string
	Port     int
	StartLED int
	EndLED   int // -1 means led_count-1
	CopyMode bool
}

type connectedDestination struct {
	Destination
	conn *net.UDPConn
}

// FanOut sends one datagram per destination per frame. Destinations
// never read live engine state; they receive an owned copy of each
// finished frame.
type FanOut struct {
	mu           sync.Mutex
	destinations []connectedDestination
	sequence     byte
	lastLEDCount int
	counters     *telemetry.Counters
}

// NewFanOut creates an empty fan-out. Call SetDestinations to configure
// remote controllers.
func NewFanOut(counters *telemetry.Counters) *FanOut {
	if counters == nil {
		counters = &telemetry.Counters{}
	}
	return &FanOut{counters: counters}
}

// SetDestinations replaces the destination list, dialing a fresh UDP
// socket for every entry and closing every previously open socket
// (unchanged entries are not reused). Used both at
// startup and by the config hot-reload watcher (§A.2).
func (f *FanOut) SetDestinations(dests []Destination) error {
	next := make([]connectedDestination, 0, len(dests))
	for _, d := range dests {
		addr, err := net.ResolveUDPAddr("udp4", d.IP+":"+strconv.Itoa(d.Port))
		if err != nil {
			log.Printf("📡 fan-out: skipping destination %s:%d, resolve error: %v", d.IP, d.Port, err)
			continue
		}
		conn, err := net.DialUDP("udp4", nil, addr)
		if err != nil {
			log.Printf("📡 fan-out: skipping destination %s:%d, dial error: %v", d.IP, d.Port, err)
			continue
		}
		next = append(next, connectedDestination{Destination: d, conn: conn})
	}

	f.mu.Lock()
	old := f.destinations
	f.destinations = next
	f.mu.Unlock()

	for _, d := range old {
		_ = d.conn.Close()
	}
	log.Printf("📡 fan-out: %d destination(s) configured", len(next))
	return nil
}

// Send emits one frame datagram per destination. A send failure to one
// destination is counted (IOFailure) and does not affect the others,
// per §4.7/§7.
func (f *FanOut) Send(frame engine.Frame) {
	f.mu.Lock()
	dests := f.destinations
	f.sequence++
	seq := f.sequence
	f.lastLEDCount = len(frame)
	f.mu.Unlock()

	for _, d := range dests {
		rgb := sliceFrame(frame, d.Destination)
		packet := lightproto.BuildFramePacket(seq, rgb)
		if _, err := d.conn.Write(packet); err != nil {
			f.counters.IOFailure.Add(1)
			log.Printf("📡 fan-out: send error to %s:%d: %v", d.IP, d.Port, err)
		}
	}
}

// Close sends a final all-black frame to every destination (a
// "blackout") before closing every socket, mirroring the teacher's
// dmx.Service.Stop.
func (f *FanOut) Close() {
	f.mu.Lock()
	dests := f.destinations
	ledCount := f.lastLEDCount
	f.destinations = nil
	f.mu.Unlock()

	blank := engine.NewFrame(ledCount)
	for _, d := range dests {
		rgb := sliceFrame(blank, d.Destination)
		f.sequence++
		packet := lightproto.BuildFramePacket(f.sequence, rgb)
		_, _ = d.conn.Write(packet)
		_ = d.conn.Close()
	}
	log.Printf("📡 fan-out: stopped")
}

// sliceFrame extracts the RGB byte sequence a destination should
// receive: the whole frame in copy mode, or the inclusive [start,end]
// range otherwise (end=-1 means led_count-1).
func sliceFrame(frame engine.Frame, d Destination) []byte {
	ledCount := len(frame)
	start, end := 0, ledCount-1
	if !d.CopyMode {
		start = d.StartLED
		end = d.EndLED
		if end < 0 {
			end = ledCount - 1
		}
		if start < 0 {
			start = 0
		}
		if end >= ledCount {
			end = ledCount - 1
		}
		if start > end {
			return nil
		}
	}

	out := make([]byte, 0, (end-start+1)*3)
	for i := start; i <= end; i++ {
		px := color.Black
		if i >= 0 && i < ledCount {
			px = frame[i]
		}
		out = append(out, px.R, px.G, px.B)
	}
	return out
}

