// Package executor runs user-triggered work off the caller's goroutine.
//
// Work is submitted to one of four named channels (text, graph, edit,
// project). Each channel is a FIFO queue drained by at most one worker
// goroutine at a time, so tasks on one channel run strictly in submission
// order while tasks on different channels may overlap. Overlapping tasks
// still serialize on the store lock.
//
// Tasks report back by publishing Results onto a single shared queue and
// raising a readiness flag. A Poller checks the flag at a fixed interval and
// hands every queued Result, in publication order, to the caller's apply
// function. Results are never delivered from worker goroutines directly.
// The goroutine running the Poller acts as the owner of the applied state;
// a caller may run it in the background and block elsewhere, as long as
// Drain is not called while Run is active.
//
// # Failure handling
//
// A task that returns an error or panics never takes its worker down: the
// failure is logged and published as an error Result carrying a *TaskError,
// and the worker moves on to the next task.
//
// # Ordering
//
// Every Result is stamped with a value from a monotonic Clock as it enters
// the shared queue, so drained results are in Seq order. Within one channel,
// results appear in execution order.
package executor
