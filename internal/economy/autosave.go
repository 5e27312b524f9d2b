package economy

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/treasury/internal/common"
	"github.com/Veraticus/treasury/internal/service"
	"golang.org/x/sync/singleflight"
)

const flushKey = "flush"

// saveState owns the pending-save flag of a backend that buffers writes.
// Every flush runs inside one singleflight region, so a tick that fires while
// a flush is in progress joins it instead of starting a second write.
type saveState struct {
	flusher service.Flusher
	group   singleflight.Group
	mu      sync.Mutex
	pending bool
}

func newSaveState(flusher service.Flusher) *saveState {
	return &saveState{flusher: flusher}
}

func (s *saveState) markDirty() {
	s.mu.Lock()
	s.pending = true
	s.mu.Unlock()
}

func (s *saveState) dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// clear drops the pending flag without writing, used after the in-memory
// document has been replaced from disk.
func (s *saveState) clear() {
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()
}

// flushIfDirty writes the document once if anything changed since the last
// flush. The flag is cleared before the snapshot is taken; mutations that land
// after that point mark it again for the next cycle.
func (s *saveState) flushIfDirty(ctx context.Context) (bool, error) {
	v, err, _ := s.group.Do(flushKey, func() (interface{}, error) {
		return s.flushPending(ctx)
	})
	wrote, _ := v.(bool)
	return wrote, err
}

// flushNow guarantees that every mutation made before the call is on disk when
// it returns nil. A joined flight may have taken its snapshot before the
// caller's mutation, so a shared result is followed by one more flight.
func (s *saveState) flushNow(ctx context.Context) error {
	s.markDirty()

	_, err, shared := s.group.Do(flushKey, func() (interface{}, error) {
		return s.flushPending(ctx)
	})
	if err != nil || !shared {
		return err
	}
	_, err = s.flushIfDirty(ctx)
	return err
}

// flushPending must only run inside the flush region.
func (s *saveState) flushPending(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if !s.pending {
		s.mu.Unlock()
		return false, nil
	}
	s.pending = false
	s.mu.Unlock()

	if err := s.flusher.Flush(ctx); err != nil {
		s.markDirty()
		return false, err
	}
	return true, nil
}

// autosave runs flushIfDirty on every tick until stop is closed.
type autosave struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startAutosave(ctx context.Context, state *saveState, ticks <-chan time.Time, stopTicker func()) *autosave {
	a := &autosave{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(a.done)
		defer stopTicker()
		for {
			select {
			case <-a.stop:
				return
			case <-ticks:
				wrote, err := state.flushIfDirty(ctx)
				if err != nil {
					common.LogError(err, "Autosave failed", nil)
					continue
				}
				if wrote {
					slog.Debug("Autosaved accounts document")
				}
			}
		}
	}()

	return a
}

// Stop ends the loop and waits for an in-progress tick to finish.
func (a *autosave) Stop() {
	a.once.Do(func() { close(a.stop) })
	<-a.done
}
