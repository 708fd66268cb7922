package journal

import "time"

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Step names a unit of chapter work.
type Step string

const (
	StepGenerate Step = "generate"
	StepNarrate  Step = "narrate"
	StepPersist  Step = "persist"
	StepConcat   Step = "concat"
)

// AttemptStatus is the outcome of a step.
type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "succeeded"
	AttemptFailed    AttemptStatus = "failed"
)

// Run is one invocation against a book.
type Run struct {
	ID           string
	BookID       string
	SpecPath     string
	Requested    int
	StartChapter int
	Completed    int
	Status       RunStatus
	ErrorKind    string
	ErrorMessage string
	ConcatPath   string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration is the wall time of a finished run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Attempt is one step of one chapter inside a run.
type Attempt struct {
	ID           int64
	RunID        string
	BookID       string
	Chapter      int
	Step         Step
	Status       AttemptStatus
	ErrorKind    string
	ErrorMessage string
	Duration     time.Duration
	RecordedAt   time.Time
}
