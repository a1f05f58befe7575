// Package tasks holds the evaluation tasks that run against a trained depth
// model. Tasks register under an id and report where their output went.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/stevecastle/depthviz/dataset"
	"github.com/stevecastle/depthviz/depthnet"
	"github.com/stevecastle/depthviz/sink"
)

// ErrUnknownTask is returned by RunAll for ids nobody registered.
var ErrUnknownTask = errors.New("unknown task")

// Args are the run arguments shared by every task.
type Args struct {
	Dataset   string
	Cache     string
	CPU       bool
	NumVideos int

	// DatasetOptions configures the loaders. An empty Name means Dataset.
	DatasetOptions dataset.Options
	// Sink overrides the default cache directory sink.
	Sink sink.Sink
	Log  logrus.FieldLogger
	// Progress is called after each sample with the 1-based position.
	Progress func(split string, i, n int)
}

// Status maps a task id to the location of its output.
type Status map[string]string

// TaskFunc runs one task for the given epoch.
type TaskFunc func(ctx context.Context, model depthnet.Model, epoch int, args Args) (Status, error)

// Task represents a runnable evaluation step.
type Task struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Fn   TaskFunc `json:"-"`
}

type TaskMap map[string]Task

var tasks = make(TaskMap)

func init() {
	RegisterTask(DepthVisualizationID, "Depth Visualization", depthVisualizationTask)
}

func RegisterTask(id, name string, fn TaskFunc) {
	tasks[id] = Task{
		ID:   id,
		Name: name,
		Fn:   fn,
	}
}

func GetTasks() TaskMap {
	return tasks
}

// IDs returns the registered task ids in sorted order.
func (m TaskMap) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RunAll runs the tasks in order and merges their statuses. It stops at the
// first failing task.
func RunAll(ctx context.Context, ids []string, model depthnet.Model, epoch int, args Args) (Status, error) {
	status := make(Status)
	for _, id := range ids {
		t, ok := tasks[id]
		if !ok {
			return status, fmt.Errorf("%w: %s", ErrUnknownTask, id)
		}
		st, err := t.Fn(ctx, model, epoch, args)
		if err != nil {
			return status, fmt.Errorf("task %s: %w", id, err)
		}
		for k, v := range st {
			status[k] = v
		}
	}
	return status, nil
}
