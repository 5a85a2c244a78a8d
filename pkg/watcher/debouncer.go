package watcher

import (
	"context"
	"time"

	"github.com/ritzau/hopgraph/pkg/logging"
)

// Debouncer batches rapid file system events to avoid excessive re-runs
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer. Events are released after
// quietPeriod without new input, or maxWait after the first held event.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

// run processes events and applies debouncing logic
func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		quiet       *time.Timer
		deadline    *time.Timer
		quietC      <-chan time.Time
		deadlineC   <-chan time.Time
		accumulated = make(map[ChangeType][]string)
		eventCount  int
	)

	flush := func() {
		if quiet != nil {
			quiet.Stop()
			quiet, quietC = nil, nil
		}
		if deadline != nil {
			deadline.Stop()
			deadline, deadlineC = nil, nil
		}
		if eventCount == 0 {
			return
		}

		logging.Debug("flushing accumulated events", "count", eventCount)

		// Config first; it may change which graph and queries are used
		for _, t := range []ChangeType{ChangeTypeConfig, ChangeTypeGraph, ChangeTypeQueries} {
			paths := accumulated[t]
			if len(paths) == 0 {
				continue
			}
			select {
			case d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
			case <-ctx.Done():
			}
		}

		accumulated = make(map[ChangeType][]string)
		eventCount = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}

			for _, p := range event.Paths {
				accumulated[event.Type] = appendUnique(accumulated[event.Type], p)
			}
			eventCount++

			// Reset quiet period timer
			if quiet == nil {
				quiet = time.NewTimer(d.quietPeriod)
				quietC = quiet.C
			} else {
				quiet.Reset(d.quietPeriod)
			}

			// Start max wait timer on first event
			if deadline == nil {
				deadline = time.NewTimer(d.maxWait)
				deadlineC = deadline.C
			}

		case <-quietC:
			flush()

		case <-deadlineC:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}
