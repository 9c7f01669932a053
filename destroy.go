package vkk

import (
	"sync"
)

// destroyable is anything the deferred-destruction worker can release
// once no in-flight frame can still reference it.
type destroyable interface {
	destroy()
}

// pendingDestroy pairs a destroyable with the frame timestamp after which
// the GAPI guarantees no command buffer can still be reading it.
type pendingDestroy struct {
	obj      destroyable
	expireTs uint64
}

// destroyQueue defers releasing GAPI objects (images, buffers, descriptor
// sets, pipelines...) until every frame that might still reference them
// has retired, so a renderer never frees something the GAPI is mid-use
// with. A single background worker drains the queue; producers only ever
// append and bump the current timestamp.
type destroyQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pending  []pendingDestroy
	ts       uint64
	shutdown bool
	done     chan struct{}
}

func newDestroyQueue() *destroyQueue {
	q := &destroyQueue{done: make(chan struct{})}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

// defer_ schedules obj for destruction once the queue's timestamp passes
// expireTs. Named with a trailing underscore since defer is a keyword.
func (q *destroyQueue) defer_(obj destroyable, expireTs uint64) {
	q.mu.Lock()
	q.pending = append(q.pending, pendingDestroy{obj: obj, expireTs: expireTs})
	q.cond.Signal()
	q.mu.Unlock()
}

// advance bumps the queue's notion of "current frame" and wakes the
// worker so anything that just expired can be reclaimed.
func (q *destroyQueue) advance(ts uint64) {
	q.mu.Lock()
	if ts > q.ts {
		q.ts = ts
	}
	q.cond.Broadcast()
	q.mu.Unlock()
}

// bump advances the queue by one tick, used by renderers that have no
// swapchain frame counter of their own (ImageRenderer, Compute) but know
// - because they just waited on their own fence - that everything queued
// before this point is now safe to reap.
func (q *destroyQueue) bump() {
	q.mu.Lock()
	q.ts++
	q.cond.Broadcast()
	q.mu.Unlock()
}

// run is the single consumer: it wakes whenever the timestamp advances or
// a new entry is queued, and destroys every entry whose expireTs has
// passed. The loop around Wait handles spurious wakeups, since neither a
// timestamp bump nor a new deferred entry guarantees the head of the
// queue has actually expired yet.
func (q *destroyQueue) run() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		i := 0
		for i < len(q.pending) {
			if q.pending[i].expireTs <= q.ts {
				obj := q.pending[i].obj
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				q.mu.Unlock()
				obj.destroy()
				q.mu.Lock()
				continue
			}
			i++
		}
		if q.shutdown && len(q.pending) == 0 {
			close(q.done)
			return
		}
		q.cond.Wait()
	}
}

// close flushes every still-pending object regardless of its expireTs
// (the engine has already waited for device idle by this point, so no
// frame can possibly still reference anything) and stops the worker.
func (q *destroyQueue) close() {
	q.mu.Lock()
	q.shutdown = true
	q.ts = ^uint64(0)
	q.cond.Broadcast()
	q.mu.Unlock()
	<-q.done
}
