// Package input provides the frontend side of the libretro input
// callbacks: something that can be polled once per frame and then
// queried per (port, device, index, id).
package input

import "sync"

// Backend answers a core's input_poll/input_state callbacks. Poll is
// called once per frame before any State calls for that frame, mirroring
// the native ABI's ordering guarantee.
type Backend interface {
	Poll()
	State(port, device, index, id uint32) int16
}

// Null is a Backend that never reports any input pressed. It is the
// default when a frontend runs headless, with no real input device driver
// wired up.
type Null struct{}

func (Null) Poll()                                     {}
func (Null) State(port, device, index, id uint32) int16 { return 0 }

// Snapshot is a Backend backed by a map the caller updates out of band
// (e.g. from a UI event loop), snapshotted once per Poll so State calls
// within a frame see a consistent view even if the map changes mid-frame.
type Snapshot struct {
	mu      sync.Mutex
	live    map[snapshotKey]int16
	current map[snapshotKey]int16
}

type snapshotKey struct {
	Port, Device, Index, ID uint32
}

func NewSnapshot() *Snapshot {
	return &Snapshot{
		live:    make(map[snapshotKey]int16),
		current: make(map[snapshotKey]int16),
	}
}

// Set records the current value for one input, to be picked up on the
// next Poll.
func (s *Snapshot) Set(port, device, index, id uint32, value int16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[snapshotKey{port, device, index, id}] = value
}

func (s *Snapshot) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = make(map[snapshotKey]int16, len(s.live))
	for k, v := range s.live {
		s.current[k] = v
	}
}

func (s *Snapshot) State(port, device, index, id uint32) int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current[snapshotKey{port, device, index, id}]
}
