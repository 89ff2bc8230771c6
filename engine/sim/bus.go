package sim

import (
	"sync"

	"pipelined.dev/conductor/engine"
)

// bus is an unbounded notification queue. Posting never blocks, so state
// changes can be requested from the goroutine that consumes the bus.
type bus struct {
	mu     sync.Mutex
	queue  []engine.Notification
	signal chan struct{}
	out    chan engine.Notification
	quit   chan struct{}
	wg     sync.WaitGroup
}

func newBus() *bus {
	b := &bus{
		signal: make(chan struct{}, 1),
		out:    make(chan engine.Notification),
		quit:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b
}

func (b *bus) post(n engine.Notification) {
	b.mu.Lock()
	b.queue = append(b.queue, n)
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

func (b *bus) run() {
	defer b.wg.Done()
	for {
		b.mu.Lock()
		var head engine.Notification
		if len(b.queue) > 0 {
			head = b.queue[0]
		}
		b.mu.Unlock()

		if head == nil {
			select {
			case <-b.signal:
				continue
			case <-b.quit:
				return
			}
		}
		select {
		case b.out <- head:
			b.mu.Lock()
			b.queue = b.queue[1:]
			b.mu.Unlock()
		case <-b.quit:
			return
		}
	}
}

// close stops delivery. Pending notifications are dropped.
func (b *bus) close() {
	close(b.quit)
	b.wg.Wait()
}
