package broker

import (
	"errors"
	"fmt"

	"github.com/cuemby/tessera/pkg/adapter"
)

// ErrTaskAlreadyExists is a CommanderError: add_task was called with a
// task_id the commander already tracks.
var ErrTaskAlreadyExists = errors.New("broker: task already exists")

// TaskTimeoutError reports that a blocking dispatch exceeded its 500ms
// budget without a response.
type TaskTimeoutError struct {
	Config adapter.BrokerTaskConfig
}

func (e *TaskTimeoutError) Error() string {
	return fmt.Sprintf("broker: task %q (id=%d) timed out waiting for response", e.Config.Name, e.Config.TaskID)
}

// TaskExecutionFailedError reports that a dispatched task's adapter
// returned a fatal (non-WaitingForTaskResponse) error.
type TaskExecutionFailedError struct {
	Config adapter.BrokerTaskConfig
	Cause  error
}

func (e *TaskExecutionFailedError) Error() string {
	return fmt.Sprintf("broker: task %q (id=%d) execution failed: %v", e.Config.Name, e.Config.TaskID, e.Cause)
}

func (e *TaskExecutionFailedError) Unwrap() error {
	return e.Cause
}
