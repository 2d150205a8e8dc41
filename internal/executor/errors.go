package executor

import (
	"errors"
	"fmt"
)

// TaskErrorCode categorizes task failures.
type TaskErrorCode string

const (
	// CodeTaskFailed indicates the task returned an error.
	CodeTaskFailed TaskErrorCode = "TASK_FAILED"

	// CodeTaskPanicked indicates the task panicked and was recovered.
	CodeTaskPanicked TaskErrorCode = "TASK_PANICKED"

	// CodeExecutorClosed indicates a task was submitted after Close.
	CodeExecutorClosed TaskErrorCode = "EXECUTOR_CLOSED"
)

// TaskError describes a task that could not complete.
type TaskError struct {
	// Code identifies the failure category.
	Code TaskErrorCode

	// Channel is the channel the task was submitted to.
	Channel Channel

	// Task is the task's name.
	Task string

	// Message is a human-readable description.
	Message string

	// Err is the error returned by the task, if any.
	Err error
}

// Error implements the error interface.
func (e *TaskError) Error() string {
	if e.Task != "" {
		return fmt.Sprintf("%s: %s (channel=%s, task=%s)", e.Code, e.Message, e.Channel, e.Task)
	}
	return fmt.Sprintf("%s: %s (channel=%s)", e.Code, e.Message, e.Channel)
}

// Unwrap returns the task's own error.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// IsTaskPanic returns true if err is a recovered task panic.
// Uses errors.As to handle wrapped errors.
func IsTaskPanic(err error) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code == CodeTaskPanicked
	}
	return false
}

// IsClosed returns true if err reports a submission to a closed executor.
func IsClosed(err error) bool {
	var te *TaskError
	if errors.As(err, &te) {
		return te.Code == CodeExecutorClosed
	}
	return false
}

func newFailedError(ch Channel, task string, err error) *TaskError {
	return &TaskError{Code: CodeTaskFailed, Channel: ch, Task: task, Message: err.Error(), Err: err}
}

func newPanicError(ch Channel, task string, recovered any) *TaskError {
	return &TaskError{
		Code:    CodeTaskPanicked,
		Channel: ch,
		Task:    task,
		Message: fmt.Sprintf("task panicked: %v", recovered),
	}
}

func newClosedError(ch Channel, task string) *TaskError {
	return &TaskError{Code: CodeExecutorClosed, Channel: ch, Task: task, Message: "executor is closed"}
}
