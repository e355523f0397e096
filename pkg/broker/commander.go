package broker

import "github.com/cuemby/tessera/pkg/adapter"

// Commander selects which tasks run on a given tick. Implementations
// are free to add other policies (priority, deadline-first) as long
// as the three operations below are honored.
type Commander interface {
	AddTask(cfg adapter.BrokerTaskConfig) error
	RemoveTask(taskID uint32)
	GetNextTasks() []uint32
}

// MockCommander pops one task per tick from an internal FIFO. It is
// used for deterministic tests.
type MockCommander struct {
	order []uint32
	known map[uint32]bool
}

// NewMockCommander creates an empty MockCommander.
func NewMockCommander() *MockCommander {
	return &MockCommander{known: make(map[uint32]bool)}
}

func (c *MockCommander) AddTask(cfg adapter.BrokerTaskConfig) error {
	if c.known[cfg.TaskID] {
		return ErrTaskAlreadyExists
	}
	c.known[cfg.TaskID] = true
	c.order = append(c.order, cfg.TaskID)
	return nil
}

func (c *MockCommander) RemoveTask(taskID uint32) {
	delete(c.known, taskID)
	for i, id := range c.order {
		if id == taskID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *MockCommander) GetNextTasks() []uint32 {
	if len(c.order) == 0 {
		return nil
	}
	next := c.order[0]
	c.order = c.order[1:]
	return []uint32{next}
}

// LinearCommander round-robins over its task list: one call to
// GetNextTasks returns one task, cycling back to the start once every
// task has had a turn.
type LinearCommander struct {
	tasks  []uint32
	known  map[uint32]bool
	cursor int
}

// NewLinearCommander creates an empty LinearCommander.
func NewLinearCommander() *LinearCommander {
	return &LinearCommander{known: make(map[uint32]bool)}
}

func (c *LinearCommander) AddTask(cfg adapter.BrokerTaskConfig) error {
	if c.known[cfg.TaskID] {
		return ErrTaskAlreadyExists
	}
	c.known[cfg.TaskID] = true
	c.tasks = append(c.tasks, cfg.TaskID)
	return nil
}

func (c *LinearCommander) RemoveTask(taskID uint32) {
	delete(c.known, taskID)
	for i, id := range c.tasks {
		if id == taskID {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			if c.cursor > i {
				c.cursor--
			}
			return
		}
	}
}

func (c *LinearCommander) GetNextTasks() []uint32 {
	if len(c.tasks) == 0 {
		return nil
	}
	if c.cursor >= len(c.tasks) {
		c.cursor = 0
	}
	next := c.tasks[c.cursor]
	c.cursor++
	return []uint32{next}
}
