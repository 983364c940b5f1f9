package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1cbyc/view0x-sub000/internal/model"
)

func recv(t *testing.T, ch <-chan model.ProgressEvent) model.ProgressEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed before event arrived")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return model.ProgressEvent{}
	}
}

func TestBusFansOutToAllSubscribers(t *testing.T) {
	b := NewBus()
	ch1, cancel1 := b.Subscribe("job-1")
	ch2, cancel2 := b.Subscribe("job-1")
	defer cancel1()
	defer cancel2()

	b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusProcessing, Progress: 30})

	assert.Equal(t, 30, recv(t, ch1).Progress)
	assert.Equal(t, 30, recv(t, ch2).Progress)
}

func TestBusScopedByJobID(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe("job-a")
	defer cancel()

	b.Publish(model.ProgressEvent{JobID: "job-b", Status: model.StatusProcessing})
	select {
	case ev := <-ch:
		t.Fatalf("received event for another job: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusTerminalEventClosesChannel(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe("job-1")
	defer cancel()

	b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusCompleted, Progress: 100})

	ev := recv(t, ch)
	assert.Equal(t, model.StatusCompleted, ev.Status)
	_, open := <-ch
	assert.False(t, open, "terminal event ends the stream")
}

func TestBusLateSubscriberGetsTerminalReplay(t *testing.T) {
	b := NewBus()
	b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusProcessing, Progress: 50})
	b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusFailed, Error: "boom"})

	ch, cancel := b.Subscribe("job-1")
	defer cancel()

	ev := recv(t, ch)
	assert.Equal(t, model.StatusFailed, ev.Status)
	assert.Equal(t, "boom", ev.Error)
	_, open := <-ch
	assert.False(t, open)
}

func TestBusCancelIsIdempotent(t *testing.T) {
	b := NewBus()
	_, cancel := b.Subscribe("job-1")
	cancel()
	cancel()

	// publishing after cancel must not panic on a closed channel
	b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusProcessing})
}

func TestBusForgetDropsTerminalReplay(t *testing.T) {
	b := NewBus()
	b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusCompleted})
	b.Forget("job-1")

	ch, cancel := b.Subscribe("job-1")
	defer cancel()
	select {
	case ev, ok := <-ch:
		t.Fatalf("expected no replay, got %+v (open=%v)", ev, ok)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBusTerminalEventSurvivesFullBuffer(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe("job-1")
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusProcessing, Progress: i})
	}
	b.Publish(model.ProgressEvent{
		JobID:    "job-1",
		Status:   model.StatusCompleted,
		Progress: 100,
		Result:   &model.MergedResult{},
	})

	var last model.ProgressEvent
	for ev := range ch {
		last = ev
	}
	assert.Equal(t, model.StatusCompleted, last.Status,
		"a full buffer evicts an old event, never the terminal one")
	assert.NotNil(t, last.Result)
}

func TestBusSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := NewBus()
	ch, cancel := b.Subscribe("job-1")
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(model.ProgressEvent{JobID: "job-1", Status: model.StatusProcessing, Progress: i})
		}
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	// drain whatever fit in the buffer
	for len(ch) > 0 {
		<-ch
	}
}
