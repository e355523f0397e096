package broker

import "time"

// Status is a task's position in its lifecycle.
type Status int

const (
	Idle Status = iota
	Queued
	Executing
	Waiting
	Completed
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Queued:
		return "Queued"
	case Executing:
		return "Executing"
	case Waiting:
		return "Waiting"
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// TaskState is the broker's mutable bookkeeping for one task: its
// current status and the watermarks used to evaluate Rate triggers and
// NewValues subscriptions.
type TaskState struct {
	TaskID            uint32
	Status            Status
	LastExecutionTime *time.Time
	LastTopicUpdate   map[string]time.Time
}

func newTaskState(taskID uint32) *TaskState {
	return &TaskState{
		TaskID:          taskID,
		Status:          Idle,
		LastTopicUpdate: make(map[string]time.Time),
	}
}
