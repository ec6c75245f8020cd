package session

import (
	"sync"
	"sync/atomic"

	"github.com/voxloop/vox-core/core/events"
)

// sessionEventQueueCapacity leaves enough headroom that the non-blocking
// enqueue path never overflows at interactive command rates; the loop's
// correctness argument rests on arrival order, which only the blocking
// overflow handoff can disturb.
const sessionEventQueueCapacity = 64

// sessionRuntime is the single dispatch point of the session: every
// collaborator effect and user command becomes an event on this queue, and
// one loop goroutine applies them to session state in arrival order. State
// guards replace locking because no two events are ever processed
// concurrently.
type sessionRuntime struct {
	queue   chan events.Event
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once

	started atomic.Bool
}

func newSessionRuntime() *sessionRuntime {
	return &sessionRuntime{
		queue:   make(chan events.Event, sessionEventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *sessionRuntime) start(process func(events.Event)) (started bool) {
	if r == nil || r.isClosed() {
		return false
	}

	r.startOnce.Do(func() {
		if r.isClosed() {
			return
		}

		started = true
		r.started.Store(true)
		go func() {
			defer close(r.done)

			for {
				select {
				case <-r.closeCh:
					return
				case event := <-r.queue:
					if r.isClosed() {
						return
					}
					process(event)
				}
			}
		}()
	})

	return started
}

func (r *sessionRuntime) end() {
	if r == nil {
		return
	}

	r.endOnce.Do(func() {
		close(r.closeCh)
	})
}

func (r *sessionRuntime) awaitCompletion() {
	if r == nil {
		return
	}

	if r.started.Load() {
		<-r.done
	}
}

func (r *sessionRuntime) enqueue(event events.Event) bool {
	if r == nil || r.isClosed() {
		return false
	}

	select {
	case <-r.closeCh:
		return false
	case r.queue <- event:
		return true
	}
}

// tryEnqueue is the non-blocking variant used by callbacks that may run on
// the loop goroutine itself, so a full queue can never deadlock the loop.
func (r *sessionRuntime) tryEnqueue(event events.Event) bool {
	if r == nil || r.isClosed() {
		return false
	}

	select {
	case r.queue <- event:
		return true
	default:
		return false
	}
}

func (r *sessionRuntime) isClosed() bool {
	if r == nil {
		return false
	}

	select {
	case <-r.closeCh:
		return true
	default:
		return false
	}
}
