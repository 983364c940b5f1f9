package events

import (
	"sync"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

const subscriberBuffer = 32

// Bus broadcasts job progress to any number of subscribers keyed by
// job id. There is no process-wide emitter: each Bus is an explicit
// dependency, and per-job state lives only while the job is non-
// terminal or still has subscribers.
type Bus struct {
	mu       sync.Mutex
	subs     map[string]map[chan model.ProgressEvent]struct{}
	terminal map[string]model.ProgressEvent
}

func NewBus() *Bus {
	return &Bus{
		subs:     map[string]map[chan model.ProgressEvent]struct{}{},
		terminal: map[string]model.ProgressEvent{},
	}
}

// Subscribe returns a channel of progress events for jobID and a
// cancel function. Subscribing after the job reached a terminal state
// replays the terminal event and closes the channel immediately.
func (b *Bus) Subscribe(jobID string) (<-chan model.ProgressEvent, func()) {
	ch := make(chan model.ProgressEvent, subscriberBuffer)

	b.mu.Lock()
	if ev, done := b.terminal[jobID]; done {
		b.mu.Unlock()
		ch <- ev
		close(ch)
		return ch, func() {}
	}
	set, ok := b.subs[jobID]
	if !ok {
		set = map[chan model.ProgressEvent]struct{}{}
		b.subs[jobID] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if set, ok := b.subs[jobID]; ok {
				if _, member := set[ch]; member {
					delete(set, ch)
					close(ch)
					if len(set) == 0 {
						delete(b.subs, jobID)
					}
				}
			}
			b.mu.Unlock()
		})
	}
	return ch, cancel
}

// Publish fans the event out to every subscriber of the job. Sends
// never block: progress is advisory, and a slow subscriber loses
// intermediate events rather than stalling the analysis. A terminal
// event is recorded for late subscribers and closes all channels; it
// evicts the oldest buffered event if the buffer is full, so the last
// event before close is always the terminal one.
func (b *Bus) Publish(ev model.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ev.Status.Terminal() {
		b.terminal[ev.JobID] = ev
	}
	for ch := range b.subs[ev.JobID] {
		select {
		case ch <- ev:
		default:
			if ev.Status.Terminal() {
				select {
				case <-ch:
				default:
				}
				select {
				case ch <- ev:
				default:
				}
			}
		}
		if ev.Status.Terminal() {
			close(ch)
		}
	}
	if ev.Status.Terminal() {
		delete(b.subs, ev.JobID)
	}
}

// Forget drops the retained terminal event for a job once no caller
// can still ask for it (e.g. when the job record itself expires).
func (b *Bus) Forget(jobID string) {
	b.mu.Lock()
	delete(b.terminal, jobID)
	b.mu.Unlock()
}
