package tracing

import (
	"slices"
	"sync"

	"github.com/tebeka/atexit"

	"github.com/sarchlab/trafficapp/datarecording"
	"github.com/sarchlab/trafficapp/sim"
)

// TraceTable is the table that a DBTracer writes finished tasks into.
const TraceTable = "trace"

// TaskEntry is a finished task as stored in the database.
type TaskEntry struct {
	ID        string
	Kind      string
	What      string
	Location  string
	StartTime int64
	EndTime   int64
}

// DBTracer is a tracer that stores finished tasks into a DataRecorder.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTimeInMs

	tracingTasks map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	if !slices.Contains(dataRecorder.ListTables(), TraceTable) {
		dataRecorder.CreateTable(TraceTable, TaskEntry{})
	}

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits tracing to the tasks that overlap with the range. An
// end time of 0 means no limit.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInMs) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startingTaskMustBeValid(task)

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task location must be set")
	}
}

// EndTask marks the end of a task and writes it.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task.EndTime = t.timeTeller.CurrentTime()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	if t.startTime > 0 && task.EndTime < t.startTime {
		return
	}

	t.backend.InsertData(TraceTable, TaskEntry{
		ID:        originalTask.ID,
		Kind:      originalTask.Kind,
		What:      originalTask.What,
		Location:  originalTask.Where,
		StartTime: int64(originalTask.StartTime),
		EndTime:   int64(task.EndTime),
	})
}

// InFlight returns the number of tasks that started but did not end.
func (t *DBTracer) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.tracingTasks)
}

// Terminate drops the unfinished tasks and flushes the finished ones.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
