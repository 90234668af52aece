package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranshivaraju/rpohub/pkg/models"
)

// Recorder counts dispatch outcomes.
type Recorder interface {
	RecordEvent(eventType, outcome string)
}

// Emitter hands events to a Dispatcher in the background. Delivery failures
// are logged and counted; they never reach the caller.
type Emitter struct {
	dispatcher Dispatcher
	recorder   Recorder
	timeout    time.Duration
	wg         sync.WaitGroup
}

func NewEmitter(d Dispatcher, rec Recorder, timeout time.Duration) *Emitter {
	return &Emitter{dispatcher: d, recorder: rec, timeout: timeout}
}

// Emit dispatches event on its own goroutine and returns immediately.
func (e *Emitter) Emit(event models.Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()

		outcome := "delivered"
		if err := e.dispatcher.Dispatch(ctx, event); err != nil {
			outcome = "failed"
			slog.Error("event dispatch failed",
				"event_id", event.ID,
				"type", event.Type,
				"job_id", event.JobID,
				"error", err,
			)
		}
		if e.recorder != nil {
			e.recorder.RecordEvent(event.Type, outcome)
		}
	}()
}

// Wait blocks until every emitted event has been dispatched or has failed.
func (e *Emitter) Wait() {
	e.wg.Wait()
}
