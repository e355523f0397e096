package broker

import (
	"sort"
	"sync"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/log"
	"github.com/cuemby/tessera/pkg/metrics"
	"github.com/cuemby/tessera/pkg/store"
	"github.com/cuemby/tessera/pkg/view"
	"github.com/rs/zerolog"
)

// dispatchPollInterval is the sleep between blocking-mode polls of a
// task's adapter for outputs/response.
const dispatchPollInterval = time.Millisecond

// dispatchBudget is the maximum time a blocking dispatch waits for a
// response before returning TaskTimeoutError.
const dispatchBudget = 500 * time.Millisecond

// inputChunkSize bounds how many datapoints are sent per SendInputs
// call.
const inputChunkSize = 32

// Broker drives the scheduling loop: it ingests new tasks from every
// registered adapter, asks the Commander which tasks to consider,
// evaluates each Queued task's trigger, and dispatches the ones that
// fire.
type Broker struct {
	mu sync.Mutex

	commander Commander
	datastore *store.Datastore
	adapters  map[string]adapter.BrokerAdapter

	configs map[uint32]adapter.BrokerTaskConfig
	states  map[uint32]*TaskState

	clock time.Duration

	logger zerolog.Logger
}

// New creates a Broker over ds, scheduling tasks via cmd.
func New(ds *store.Datastore, cmd Commander) *Broker {
	return &Broker{
		commander: cmd,
		datastore: ds,
		adapters:  make(map[string]adapter.BrokerAdapter),
		configs:   make(map[uint32]adapter.BrokerTaskConfig),
		states:    make(map[uint32]*TaskState),
		logger:    log.WithComponent("broker"),
	}
}

// RegisterAdapter attaches a named adapter the broker will poll for
// new tasks and dispatch through.
func (b *Broker) RegisterAdapter(id string, a adapter.BrokerAdapter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.adapters[id] = a
}

// State returns a copy of the current bookkeeping for taskID, if known.
func (b *Broker) State(taskID uint32) (TaskState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.states[taskID]
	if !ok {
		return TaskState{}, false
	}
	return *st, true
}

// Snapshot returns a copy of every task's current bookkeeping, for use
// by a metrics collector.
func (b *Broker) Snapshot() []TaskState {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]TaskState, 0, len(b.states))
	for _, st := range b.states {
		out = append(out, *st)
	}
	return out
}

// Clock returns the broker's current monotonic time.
func (b *Broker) Clock() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.clock
}

type dispatchResult struct {
	taskID  uint32
	cfg     adapter.BrokerTaskConfig
	err     error
}

// Tick runs one scheduling cycle. Any step that fails
// surfaces an error but leaves the broker's remaining state intact.
func (b *Broker) Tick(deltaTime time.Duration) error {
	timer := metrics.NewTimer()

	b.mu.Lock()

	// 1. Ingest new tasks from every adapter, in adapter-ID order.
	adapterIDs := make([]string, 0, len(b.adapters))
	for id := range b.adapters {
		adapterIDs = append(adapterIDs, id)
	}
	sort.Strings(adapterIDs)
	for _, adapterID := range adapterIDs {
		a := b.adapters[adapterID]
		cfgs, err := a.GetNewTasks()
		if err != nil {
			b.logger.Warn().Err(err).Str("adapter", adapterID).Msg("get_new_tasks failed")
			continue
		}
		for _, cfg := range cfgs {
			cfg.AdapterID = adapterID
			if err := b.commander.AddTask(cfg); err != nil {
				b.logger.Warn().Err(err).Uint32("task_id", cfg.TaskID).Msg("add_task failed")
				continue
			}
			b.configs[cfg.TaskID] = cfg
			b.states[cfg.TaskID] = newTaskState(cfg.TaskID)
		}
	}

	// 2. Pick next tasks.
	next := b.commander.GetNextTasks()
	if len(next) == 0 {
		b.mu.Unlock()
		timer.ObserveDuration(metrics.TickDuration)
		return nil
	}

	// 3. Mark selected tasks Queued.
	for _, taskID := range next {
		if st, ok := b.states[taskID]; ok {
			st.Status = Queued
		}
	}

	// 4 & 5. Evaluate every currently-Queued task's trigger and
	// dispatch the ones that fire.
	now := time.Now()
	var dispatches []func() dispatchResult
	for taskID, st := range b.states {
		if st.Status != Queued {
			continue
		}
		cfg, ok := b.configs[taskID]
		if !ok {
			continue
		}
		if !triggerFires(cfg.Trigger, st, now) {
			continue
		}

		v := view.New()
		forwarded := make([]string, 0, len(cfg.Subscriptions))
		for _, sub := range cfg.Subscriptions {
			switch sub.Mode {
			case adapter.Latest:
				v.AddQuery(b.datastore, sub.TopicQuery)
			case adapter.NewValues:
				since := time.Time{}
				if st.LastExecutionTime != nil {
					since = *st.LastExecutionTime
				}
				watermark := st.LastTopicUpdate[sub.TopicQuery.String()]
				v.AddQueryAfterPer(b.datastore, sub.TopicQuery, since, watermark)
			}
			forwarded = append(forwarded, sub.TopicQuery.String())
		}

		st.Status = Executing
		nowWall := time.Now()
		st.LastExecutionTime = &nowWall

		a, ok := b.adapters[cfg.AdapterID]
		if !ok {
			st.Status = Failed
			continue
		}

		var prevMono *time.Duration
		if b.clock > 0 {
			prev := b.clock
			prevMono = &prev
		}
		bt := adapter.BrokerTime{TimeMonotonic: b.clock, TimeDelta: deltaTime, TimeLastMonotonic: prevMono}

		dispatches = append(dispatches, b.makeDispatch(a, cfg, bt, v))

		for _, topicStr := range forwarded {
			st.LastTopicUpdate[topicStr] = nowWall
		}
	}

	// 6. Advance the clock.
	b.clock += deltaTime
	b.mu.Unlock()

	timer.ObserveDuration(metrics.TickDuration)

	// 7. Await dispatches and apply their outcome.
	results := awaitAll(dispatches)

	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for _, r := range results {
		st, ok := b.states[r.taskID]
		if !ok {
			continue
		}
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			if _, timedOut := r.err.(*TaskTimeoutError); timedOut {
				metrics.TasksTimedOut.Inc()
			} else {
				metrics.TasksFailed.Inc()
			}
			delete(b.configs, r.taskID)
			delete(b.states, r.taskID)
			b.commander.RemoveTask(r.taskID)
			continue
		}
		st.Status = Completed
	}
	return firstErr
}

// triggerFires reports whether a Queued task's trigger fires this tick.
func triggerFires(t adapter.Trigger, st *TaskState, now time.Time) bool {
	switch t.Kind {
	case adapter.Always:
		return true
	case adapter.Rate:
		return st.LastExecutionTime == nil || now.Sub(*st.LastExecutionTime) >= t.Rate
	default:
		return false
	}
}

func (b *Broker) makeDispatch(a adapter.BrokerAdapter, cfg adapter.BrokerTaskConfig, bt adapter.BrokerTime, v *view.DataView) func() dispatchResult {
	return func() dispatchResult {
		timer := metrics.NewTimer()
		defer timer.ObserveDuration(metrics.TaskDispatchDuration)

		dps := v.Datapoints(time.Now())
		for i := 0; i < len(dps); i += inputChunkSize {
			end := i + inputChunkSize
			if end > len(dps) {
				end = len(dps)
			}
			if err := a.SendInputs(cfg.TaskID, dps[i:end]); err != nil {
				return dispatchResult{taskID: cfg.TaskID, cfg: cfg, err: &TaskExecutionFailedError{Config: cfg, Cause: err}}
			}
		}
		if err := a.SendExecute(cfg, bt); err != nil {
			return dispatchResult{taskID: cfg.TaskID, cfg: cfg, err: &TaskExecutionFailedError{Config: cfg, Cause: err}}
		}

		if cfg.Flags.NonBlocking {
			if outs, err := a.RecvOutputs(cfg.TaskID); err == nil {
				b.commitOutputs(outs)
			}
			_ = a.RecvResponse(cfg.TaskID)
			return dispatchResult{taskID: cfg.TaskID, cfg: cfg}
		}

		deadline := time.Now().Add(dispatchBudget)
		for {
			if outs, err := a.RecvOutputs(cfg.TaskID); err == nil {
				b.commitOutputs(outs)
			}
			err := a.RecvResponse(cfg.TaskID)
			if err == nil {
				return dispatchResult{taskID: cfg.TaskID, cfg: cfg}
			}
			if err != adapter.ErrWaitingForTaskResponse {
				return dispatchResult{taskID: cfg.TaskID, cfg: cfg, err: &TaskExecutionFailedError{Config: cfg, Cause: err}}
			}
			if time.Now().After(deadline) {
				return dispatchResult{taskID: cfg.TaskID, cfg: cfg, err: &TaskTimeoutError{Config: cfg}}
			}
			time.Sleep(dispatchPollInterval)
		}
	}
}

func (b *Broker) commitOutputs(dps []store.Datapoint) {
	if len(dps) == 0 {
		return
	}
	flat := view.FromDatapoints(dps)
	if err := flat.ApplyInto(b.datastore); err != nil {
		b.logger.Warn().Err(err).Msg("failed to commit task outputs")
	}
}

func awaitAll(dispatches []func() dispatchResult) []dispatchResult {
	results := make([]dispatchResult, len(dispatches))
	var wg sync.WaitGroup
	for i, d := range dispatches {
		wg.Add(1)
		go func(i int, d func() dispatchResult) {
			defer wg.Done()
			results[i] = d()
		}(i, d)
	}
	wg.Wait()
	return results
}
