package app

import (
	"sync"

	"github.com/fluxsocial/voicerelay/internal/domain"
)

const schedQueueSize = 128

// Sched serializes state transitions per room: every mutation for a given
// room runs on that room's single worker goroutine, while different rooms
// proceed fully in parallel. Workers are spawned on demand and exit as
// soon as their queue drains, so an idle process holds no goroutines.
type Sched struct {
	mu      sync.Mutex
	workers map[domain.RoomID]*roomWorker
}

type roomWorker struct {
	queue   chan func()
	pending int
}

func NewSched() *Sched {
	return &Sched{workers: make(map[domain.RoomID]*roomWorker)}
}

// Do enqueues fn on the room's worker. A full queue blocks the caller,
// which backpressures the submitting connection's read loop.
func (s *Sched) Do(room domain.RoomID, fn func()) {
	s.mu.Lock()
	w, ok := s.workers[room]
	if !ok {
		w = &roomWorker{queue: make(chan func(), schedQueueSize)}
		s.workers[room] = w
		go s.run(room, w)
	}
	w.pending++
	s.mu.Unlock()
	w.queue <- fn
}

// DoWait runs fn on the room's worker and blocks until it finished.
// Must not be called from that same room's worker.
func (s *Sched) DoWait(room domain.RoomID, fn func()) {
	done := make(chan struct{})
	s.Do(room, func() {
		defer close(done)
		fn()
	})
	<-done
}

func (s *Sched) run(room domain.RoomID, w *roomWorker) {
	for fn := range w.queue {
		fn()

		s.mu.Lock()
		w.pending--
		if w.pending == 0 {
			// No queued work and no submitter in flight: safe to retire.
			delete(s.workers, room)
			close(w.queue)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}
}
