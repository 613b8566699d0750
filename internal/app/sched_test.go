package app_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fluxsocial/voicerelay/internal/app"
)

func TestSchedSerializesPerRoom(t *testing.T) {
	s := app.NewSched()

	// No synchronization inside the closures: the race detector flags any
	// overlap between events of the same room.
	counter := 0
	var wg sync.WaitGroup
	const events = 200
	for i := 0; i < events; i++ {
		wg.Add(1)
		s.Do("room-a", func() {
			counter++
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, events, counter)
}

func TestSchedRoomsRunInParallel(t *testing.T) {
	s := app.NewSched()

	aStarted := make(chan struct{})
	release := make(chan struct{})

	s.Do("room-a", func() {
		close(aStarted)
		<-release
	})

	<-aStarted
	// room-b progresses while room-a's worker is blocked.
	done := make(chan struct{})
	s.Do("room-b", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("room-b event blocked behind room-a")
	}
	close(release)
}

func TestSchedDoWait(t *testing.T) {
	s := app.NewSched()

	ran := false
	s.DoWait("room-a", func() { ran = true })
	assert.True(t, ran)
}

func TestSchedWorkerRespawnsAfterIdle(t *testing.T) {
	s := app.NewSched()

	for i := 0; i < 10; i++ {
		s.DoWait("room-a", func() {})
		// Each DoWait may hit a fresh worker after the previous one
		// retired; order and results must be unaffected.
	}
}
