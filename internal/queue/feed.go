package queue

import "sync"

// feed delivers progress snapshots to an observer in order, on its own
// goroutine, so observers can call back into the queue.
type feed struct {
	fn func(Progress)

	mu      sync.Mutex
	pending []Progress
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newFeed(fn func(Progress)) *feed {
	if fn == nil {
		return nil
	}
	f := &feed{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *feed) push(p Progress) {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.pending = append(f.pending, p)
	f.mu.Unlock()
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *feed) run() {
	for {
		select {
		case <-f.wake:
			f.drain()
		case <-f.done:
			f.drain()
			return
		}
	}
}

func (f *feed) drain() {
	for {
		f.mu.Lock()
		batch := f.pending
		f.pending = nil
		f.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		for _, p := range batch {
			f.fn(p)
		}
	}
}

func (f *feed) close() {
	if f == nil {
		return
	}
	f.once.Do(func() { close(f.done) })
}
