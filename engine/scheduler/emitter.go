package scheduler

import (
	"sync"
	"time"

	"github.com/careerscout-labs/resumeanalysis/engine/envelope"
)

// DefaultEventBuffer is the progress channel capacity per run.
const DefaultEventBuffer = 64

// Emitter publishes one run's ordered progress stream. It implements
// stages.EventSink for mid-run updates and carries exactly one terminal
// sentinel (result or error) before closing the channel.
//
// Sends never block the pipeline: when a slow consumer fills the buffer,
// progress events are dropped. The terminal sentinel is never dropped; it
// evicts the oldest buffered event if it has to.
type Emitter struct {
	mu     sync.Mutex
	ch     chan envelope.ProgressEvent
	seq    int
	closed bool
}

// NewEmitter creates an emitter with the given buffer capacity.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &Emitter{ch: make(chan envelope.ProgressEvent, buffer)}
}

// Events returns the consumer side of the stream. The channel closes after
// the terminal sentinel.
func (e *Emitter) Events() <-chan envelope.ProgressEvent {
	return e.ch
}

// Emit implements stages.EventSink. No-op after the stream is terminal.
func (e *Emitter) Emit(stage, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.seq++
	ev := envelope.ProgressEvent{
		Type:      envelope.EventProgress,
		Stage:     stage,
		Message:   message,
		Seq:       e.seq,
		Timestamp: time.Now().UTC(),
	}
	select {
	case e.ch <- ev:
	default:
		// Buffer full, consumer is behind. Progress is advisory.
	}
}

// Done terminates the stream with the final artifact.
func (e *Emitter) Done(artifact *envelope.FinalArtifact) {
	e.terminal(envelope.ProgressEvent{
		Type:     envelope.EventResult,
		Artifact: artifact,
	})
}

// Fail terminates the stream with a run failure.
func (e *Emitter) Fail(stage string, err error) {
	e.terminal(envelope.ProgressEvent{
		Type:  envelope.EventError,
		Stage: stage,
		Err:   err.Error(),
	})
}

func (e *Emitter) terminal(ev envelope.ProgressEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.seq++
	ev.Seq = e.seq
	ev.Timestamp = time.Now().UTC()

	for {
		select {
		case e.ch <- ev:
			close(e.ch)
			return
		default:
			// Make room by evicting the oldest buffered progress event.
			select {
			case <-e.ch:
			default:
			}
		}
	}
}
