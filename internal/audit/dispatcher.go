package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards audit events to a sink. Drop
// accounting is kept per severity; critical events (reuse detection,
// lockouts) are never shed under DropIfFull and instead wait for
// buffer space.
type Dispatcher struct {
	cfg  Config
	sink Sink
	ch   chan Event
	done chan struct{}
	wg   sync.WaitGroup

	droppedInfo     atomic.Uint64
	droppedWarning  atomic.Uint64
	droppedCritical atomic.Uint64

	closed    atomic.Bool
	closeOnce sync.Once
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:  cfg,
		sink: sink,
		ch:   make(chan Event, cfg.BufferSize),
		done: make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			d.flush()
			return
		}
	}
}

// flush empties whatever is still buffered at shutdown.
func (d *Dispatcher) flush() {
	for {
		select {
		case event := <-d.ch:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull && event.Severity != SeverityCritical {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.noteDrop(event.Severity)
		}
		return
	}

	// Critical events, and every event in strict mode, wait for space.
	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.noteDrop(event.Severity)
	case <-d.done:
	}
}

func (d *Dispatcher) noteDrop(severity Severity) {
	switch severity {
	case SeverityCritical:
		d.droppedCritical.Add(1)
	case SeverityWarning:
		d.droppedWarning.Add(1)
	default:
		d.droppedInfo.Add(1)
	}
}

func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns the total number of shed events across severities.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.droppedInfo.Load() + d.droppedWarning.Load() + d.droppedCritical.Load()
}

// DroppedCritical returns how many critical events were lost. Anything
// above zero means the sink could not keep up during a security
// incident and deserves operator attention.
func (d *Dispatcher) DroppedCritical() uint64 {
	if d == nil {
		return 0
	}
	return d.droppedCritical.Load()
}
