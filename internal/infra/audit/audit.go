package audit

import (
	"sync"
	"time"
)

// Event is one structured operation record: what ran, whether it worked, and
// how long it took.
type Event struct {
	Operation  string
	Success    bool
	DurationMS int64
	Metadata   map[string]any
	At         time.Time
}

// Recorder collects operation events in memory. It doubles as the metrics
// sink: counters are derivable from the event list.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Record(operation string, success bool, duration time.Duration, metadata map[string]any) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{
		Operation:  operation,
		Success:    success,
		DurationMS: duration.Milliseconds(),
		Metadata:   metadata,
		At:         time.Now().UTC(),
	})
}

func (r *Recorder) Events() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Count returns how many events were recorded for an operation, split by
// outcome.
func (r *Recorder) Count(operation string) (success, failure int) {
	if r == nil {
		return 0, 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.Operation != operation {
			continue
		}
		if event.Success {
			success++
		} else {
			failure++
		}
	}
	return success, failure
}
