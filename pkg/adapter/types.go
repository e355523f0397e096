package adapter

import (
	"time"

	"github.com/cuemby/tessera/pkg/topic"
)

// SubscriptionMode selects how a Subscription is satisfied when the
// broker assembles a task's input DataView.
type SubscriptionMode int

const (
	// Latest always includes the current value of every matching
	// bucket, regardless of whether it has changed.
	Latest SubscriptionMode = iota
	// NewValues includes a bucket only if it has changed since the
	// task's own last delivery watermark for that topic.
	NewValues
)

func (m SubscriptionMode) String() string {
	switch m {
	case Latest:
		return "Latest"
	case NewValues:
		return "NewValues"
	default:
		return "Unknown"
	}
}

// Subscription is one input binding of a task: a topic subtree query
// plus the delivery mode applied to it.
type Subscription struct {
	TopicQuery topic.Key
	Mode       SubscriptionMode
}

// TriggerKind selects when a Queued task becomes eligible to run.
type TriggerKind int

const (
	// Always makes every Queued task immediately eligible.
	Always TriggerKind = iota
	// Rate makes a task eligible once per window of the given
	// duration. The window is measured in wall-clock time since the
	// task's last execution; the broker's monotonic clock is not
	// consulted.
	Rate
)

// Trigger is a task's eligibility rule.
type Trigger struct {
	Kind TriggerKind
	Rate time.Duration
}

// TaskFlags are per-task dispatch modifiers.
type TaskFlags struct {
	// NonBlocking makes the broker's dispatch step drain whatever is
	// already available and return immediately, instead of polling
	// up to the 500ms blocking budget.
	NonBlocking bool
}

// BrokerTaskConfig is the immutable description of a task, supplied by
// the node that hosts it.
type BrokerTaskConfig struct {
	TaskID        uint32
	Name          string
	AdapterID     string
	ConnectionID  string
	Subscriptions []Subscription
	Trigger       Trigger
	Flags         TaskFlags
}

// BrokerTime is the monotone clock handed to a task on each execution,
// letting it reconstruct its own elapsed time without reading the wall
// clock.
type BrokerTime struct {
	TimeMonotonic     time.Duration
	TimeDelta         time.Duration
	TimeLastMonotonic *time.Duration
}
