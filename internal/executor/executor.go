package executor

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Channel names an independent FIFO lane of work.
type Channel string

const (
	ChannelText    Channel = "text"
	ChannelGraph   Channel = "graph"
	ChannelEdit    Channel = "edit"
	ChannelProject Channel = "project"
)

// Channels returns every channel.
func Channels() []Channel {
	return []Channel{ChannelText, ChannelGraph, ChannelEdit, ChannelProject}
}

// Area returns the area refreshed by failures on the channel.
func (c Channel) Area() Area {
	switch c {
	case ChannelText:
		return AreaText
	case ChannelEdit:
		return AreaRelations
	case ChannelProject:
		return AreaProject
	default:
		return AreaGraph
	}
}

// Task is a unit of work. The context is never cancelled by the executor:
// shutdown stops the poller, not in-flight work.
type Task func(ctx context.Context, pub Publisher) error

type pending struct {
	id   string
	name string
	run  Task
}

// lane is the queue and busy flag of one channel. Both are guarded by mu so
// a worker cannot retire while a submission is being added.
type lane struct {
	mu    sync.Mutex
	tasks []pending
	busy  bool
}

// push appends t and reports whether a worker must be started.
func (l *lane) push(t pending) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append(l.tasks, t)
	if l.busy {
		return false
	}
	l.busy = true
	return true
}

// pop returns the next task, or clears the busy flag when the lane is empty.
func (l *lane) pop() (pending, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		l.busy = false
		return pending{}, false
	}
	t := l.tasks[0]
	l.tasks[0] = pending{}
	l.tasks = l.tasks[1:]
	return t, true
}

func (l *lane) isBusy() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.busy
}

// Executor dispatches tasks to per-channel workers and collects results.
//
// Thread-safety model:
//   - Enqueue, Idle, Wait, Close, Drain: safe from any goroutine
//   - Poller.Run: one goroutine at a time
type Executor struct {
	lanes   map[Channel]*lane
	results *resultQueue
	ready   atomic.Bool
	clock   Clock
	ids     IDGenerator
	logger  *slog.Logger

	mu      sync.Mutex
	closed  bool
	pending int
	idle    chan struct{}
}

// Option configures an Executor.
type Option func(*Executor)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithIDGenerator replaces the UUIDv7 task id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Executor) {
		if g != nil {
			e.ids = g
		}
	}
}

// New creates an idle Executor.
func New(opts ...Option) *Executor {
	e := &Executor{
		lanes:   make(map[Channel]*lane, 4),
		results: newResultQueue(),
		ids:     UUIDv7Generator{},
		logger:  slog.Default(),
		idle:    make(chan struct{}),
	}
	close(e.idle)
	for _, ch := range Channels() {
		e.lanes[ch] = &lane{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enqueue submits a task to a channel and returns its id. If the channel has
// no running worker, exactly one is started.
func (e *Executor) Enqueue(ch Channel, name string, task Task) (string, error) {
	l, ok := e.lanes[ch]
	if !ok {
		return "", fmt.Errorf("unknown channel %q", ch)
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", newClosedError(ch, name)
	}
	if e.pending == 0 {
		e.idle = make(chan struct{})
	}
	e.pending++
	e.mu.Unlock()

	id := e.ids.Generate()
	if l.push(pending{id: id, name: name, run: task}) {
		go e.work(ch, l)
	}
	e.logger.Debug("task enqueued", "channel", string(ch), "task", name, "task_id", id)
	return id, nil
}

// work drains a lane until it is empty.
func (e *Executor) work(ch Channel, l *lane) {
	for {
		t, ok := l.pop()
		if !ok {
			return
		}
		e.run(ch, t)
	}
}

func (e *Executor) run(ch Channel, t pending) {
	defer e.done()

	pub := &taskPublisher{exec: e, taskID: t.id}
	if err := e.invoke(ch, t, pub); err != nil {
		e.logger.Error("task failed",
			"channel", string(ch), "task", t.name, "task_id", t.id, "error", err)
		pub.fail(ch.Area(), err)
	}
}

// invoke runs the task, converting a returned error or a panic into a
// *TaskError.
func (e *Executor) invoke(ch Channel, t pending, pub Publisher) (err error) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Debug("recovered task panic", "task", t.name, "stack", string(debug.Stack()))
			err = newPanicError(ch, t.name, r)
		}
	}()

	if err := t.run(context.Background(), pub); err != nil {
		return newFailedError(ch, t.name, err)
	}
	return nil
}

func (e *Executor) done() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending--
	if e.pending == 0 {
		close(e.idle)
	}
}

func (e *Executor) publish(r Result) {
	e.results.Enqueue(r, &e.clock)
	e.ready.Store(true)
}

// Busy reports whether a channel has a running worker.
func (e *Executor) Busy(ch Channel) bool {
	l, ok := e.lanes[ch]
	return ok && l.isBusy()
}

// Idle reports whether every submitted task has finished.
func (e *Executor) Idle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending == 0
}

// Wait blocks until every task submitted so far has finished or ctx is done.
func (e *Executor) Wait(ctx context.Context) error {
	e.mu.Lock()
	idle := e.idle
	e.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-idle:
		return nil
	}
}

// Close refuses further submissions. Tasks already queued still run.
func (e *Executor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}

// Drain delivers every queued result to apply, in publication order, if the
// readiness flag is set. It returns the number of results delivered.
func (e *Executor) Drain(apply func(Result)) int {
	if !e.ready.CompareAndSwap(true, false) {
		return 0
	}
	n := 0
	for {
		r, ok := e.results.TryDequeue()
		if !ok {
			return n
		}
		apply(r)
		n++
	}
}
