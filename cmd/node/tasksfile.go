package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cuemby/tessera/pkg/adapter"
	"github.com/cuemby/tessera/pkg/node"
	"github.com/cuemby/tessera/pkg/topic"
	"gopkg.in/yaml.v3"
)

// tasksFile is the declarative shape of a --tasks-file document: a
// list of TickerTask instances to host, identified by a numeric task
// ID, an output topic, and a trigger. It exists so an operator can
// stand up a node with several example tasks without recompiling.
type tasksFile struct {
	Tasks []taskSpec `yaml:"tasks"`
}

type taskSpec struct {
	ID          uint32      `yaml:"id"`
	OutputTopic string      `yaml:"output_topic"`
	Trigger     triggerSpec `yaml:"trigger"`
}

type triggerSpec struct {
	Kind string        `yaml:"kind"` // "always" or "rate"
	Rate time.Duration `yaml:"rate"`
}

func loadTasksFile(path string) ([]*node.TickerTask, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tasks file: %w", err)
	}

	var doc tasksFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse tasks file: %w", err)
	}

	tasks := make([]*node.TickerTask, 0, len(doc.Tasks))
	for _, spec := range doc.Tasks {
		trig, err := spec.Trigger.toAdapterTrigger()
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", spec.ID, err)
		}
		tasks = append(tasks, node.NewTickerTask(spec.ID, trig, topic.Parse(spec.OutputTopic)))
	}
	return tasks, nil
}

func (t triggerSpec) toAdapterTrigger() (adapter.Trigger, error) {
	switch t.Kind {
	case "", "always":
		return adapter.Trigger{Kind: adapter.Always}, nil
	case "rate":
		if t.Rate <= 0 {
			return adapter.Trigger{}, fmt.Errorf("rate trigger requires a positive rate")
		}
		return adapter.Trigger{Kind: adapter.Rate, Rate: t.Rate}, nil
	default:
		return adapter.Trigger{}, fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
}
