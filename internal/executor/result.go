package executor

import (
	"fmt"
	"sync"
)

// Kind classifies a Result.
type Kind string

const (
	// KindImage reports a regenerated diagram. The payload is the rendered
	// file path or a message.
	KindImage Kind = "image"
	// KindText carries extracted text.
	KindText Kind = "text"
	// KindStatus carries an informational message.
	KindStatus Kind = "status"
	// KindError carries a failure; Err is set.
	KindError Kind = "error"
)

// Area names the part of the interface a Result refreshes.
type Area string

const (
	AreaText      Area = "text"
	AreaGraph     Area = "graph"
	AreaRelations Area = "relations"
	AreaNodes     Area = "nodes"
	AreaProject   Area = "project"
)

// Result is a message published by a task.
type Result struct {
	TaskID  string
	Seq     int64
	Kind    Kind
	Area    Area
	Payload string
	Err     error
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("[%d] %s/%s: %v", r.Seq, r.Kind, r.Area, r.Err)
	}
	return fmt.Sprintf("[%d] %s/%s: %s", r.Seq, r.Kind, r.Area, r.Payload)
}

// Publisher lets a running task post results.
type Publisher interface {
	Publish(kind Kind, area Area, payload string)
}

// resultQueue is a thread-safe unbounded FIFO of results.
//
// Workers enqueue from any goroutine; the poller drains.
type resultQueue struct {
	mu      sync.Mutex
	results []Result
}

func newResultQueue() *resultQueue {
	return &resultQueue{results: make([]Result, 0, 16)}
}

// Enqueue stamps r with the next value of clock and adds it to the back of
// the queue. Queue order therefore always matches Seq order.
func (q *resultQueue) Enqueue(r Result, clock *Clock) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r.Seq = clock.Next()
	q.results = append(q.results, r)
}

// TryDequeue removes and returns the front result.
// Returns (Result{}, false) if the queue is empty.
func (q *resultQueue) TryDequeue() (Result, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.results) == 0 {
		return Result{}, false
	}

	r := q.results[0]
	// Clear the slot so the backing array does not pin the error value.
	q.results[0] = Result{}
	if len(q.results) == 1 {
		q.results = q.results[:0]
	} else {
		q.results = q.results[1:]
	}
	return r, true
}

// Len returns the current queue length.
func (q *resultQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.results)
}

// taskPublisher stamps results of one task.
type taskPublisher struct {
	exec   *Executor
	taskID string
}

func (p *taskPublisher) Publish(kind Kind, area Area, payload string) {
	p.exec.publish(Result{TaskID: p.taskID, Kind: kind, Area: area, Payload: payload})
}

func (p *taskPublisher) fail(area Area, err error) {
	p.exec.publish(Result{TaskID: p.taskID, Kind: KindError, Area: area, Payload: err.Error(), Err: err})
}
