package store

import (
	"sync"
	"time"

	"github.com/fentz26/serpmine/internal/logx"
)

// DefaultSaveDelay batches save requests arriving within this window into
// one write.
const DefaultSaveDelay = 500 * time.Millisecond

// Saver debounces workspace persistence. Registry change hooks call
// Request on every mutation; the actual write happens once the stream
// goes quiet for the configured delay. Persistence failures are logged
// and never fatal: the in-memory state stays correct.
type Saver struct {
	store   *Store
	collect func() *Workspace
	delay   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	closed  bool
	done    chan struct{}
	pending bool
}

// NewSaver creates a debounced saver. collect is called at write time to
// capture the current workspace.
func NewSaver(s *Store, collect func() *Workspace, delay time.Duration) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Saver{
		store:   s,
		collect: collect,
		delay:   delay,
		done:    make(chan struct{}),
	}
}

// Request schedules a save after the idle delay, extending any pending
// schedule.
func (sv *Saver) Request() {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	if sv.closed {
		return
	}
	sv.pending = true
	if sv.timer == nil {
		sv.timer = time.AfterFunc(sv.delay, sv.flush)
	} else {
		sv.timer.Reset(sv.delay)
	}
}

// flush performs the write outside the lock.
func (sv *Saver) flush() {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return
	}
	sv.pending = false
	sv.mu.Unlock()

	ws := sv.collect()
	if ws == nil {
		return
	}
	if err := sv.store.SaveWorkspace(ws); err != nil {
		logx.ErrorErr(logx.CatStore, "workspace save failed", err)
	}
}

// Close flushes any pending save and stops the saver.
func (sv *Saver) Close() {
	sv.mu.Lock()
	if sv.closed {
		sv.mu.Unlock()
		return
	}
	sv.closed = true
	if sv.timer != nil {
		sv.timer.Stop()
	}
	pending := sv.pending
	sv.mu.Unlock()

	if pending {
		ws := sv.collect()
		if ws != nil {
			if err := sv.store.SaveWorkspace(ws); err != nil {
				logx.ErrorErr(logx.CatStore, "final workspace save failed", err)
			}
		}
	}
	close(sv.done)
}
