// Package scheduler implements the fixed-rate frame scheduler (C6): a
// dedicated worker that advances virtual time, renders, and hands frames
// to the output stage, grounded on the teacher's dmx.Service adaptive
// transmitLoop (stable ticker, resettable on a rate change).
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/bbernstein/ledscene-go/internal/engine"
)

// FrameSink receives one finished, owned frame per tick.
type FrameSink interface {
	Send(frame engine.Frame)
}

// Scheduler runs the render+emit loop on its own goroutine.
type Scheduler struct {
	manager *engine.Manager
	sink    FrameSink
	now     func() time.Time

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// New creates a Scheduler driving manager and emitting to sink. now
// defaults to time.Now; tests may inject a synthetic clock.
func New(manager *engine.Manager, sink FrameSink) *Scheduler {
	return &Scheduler{manager: manager, sink: sink, now: time.Now}
}

// Start launches the scheduler loop. A second call is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.stopChan = make(chan struct{})
	s.doneChan = make(chan struct{})
	s.running = true
	go s.loop(s.stopChan, s.doneChan)
	log.Printf("🎭 frame scheduler started")
}

// Stop signals the loop to exit after completing its current frame and
// waits for it to finish. A second call is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopChan, doneChan := s.stopChan, s.doneChan
	s.running = false
	s.mu.Unlock()

	close(stopChan)
	<-doneChan
	log.Printf("🎭 frame scheduler stopped")
}

func (s *Scheduler) loop(stopChan, doneChan chan struct{}) {
	defer close(doneChan)

	fps := s.manager.CurrentFPS()
	ticker := time.NewTicker(tickInterval(fps))
	defer ticker.Stop()

	last := s.now()

	for {
		select {
		case <-stopChan:
			return
		case tick := <-ticker.C:
			dtReal := tick.Sub(last).Seconds()
			last = tick

			speed := s.manager.SpeedPercent()
			dt := dtReal * float64(speed) / 100.0

			frame := s.manager.Tick(dt, tick)
			s.sink.Send(frame)

			if newFPS := s.manager.CurrentFPS(); newFPS != fps {
				old := ticker
				ticker = time.NewTicker(tickInterval(newFPS))
				old.Stop()
				fps = newFPS
			}
		}
	}
}

func tickInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 60
	}
	return time.Second / time.Duration(fps)
}
