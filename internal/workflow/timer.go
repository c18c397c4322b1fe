package workflow

import (
	"sync"
	"time"
)

// timerService tracks at most one pending timer per incident ID. Arming
// replaces any prior timer for that ID; the callback runs on its own
// goroutine.
type timerService struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newTimerService() *timerService {
	return &timerService{timers: make(map[string]*time.Timer)}
}

func (t *timerService) arm(id string, d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[id]; ok {
		old.Stop()
	}
	t.timers[id] = time.AfterFunc(d, func() {
		t.mu.Lock()
		delete(t.timers, id)
		t.mu.Unlock()
		fn()
	})
}

func (t *timerService) cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.timers[id]; ok {
		old.Stop()
		delete(t.timers, id)
	}
}

func (t *timerService) stopAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}
