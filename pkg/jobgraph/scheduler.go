package jobgraph

import "context"

// Script is a rendered unit ready for submission.
type Script struct {
	UnitID string
	Text   string

	// Name is the file name the script should be written under.
	Name string

	// Dir is the directory the job runs in; empty means the scheduler's
	// default.
	Dir string
}

// JobHandle identifies a submitted job to its scheduler.
type JobHandle struct {
	ID string
}

// Status is the scheduler's view of a job.
type Status int

const (
	StatusUnknown Status = iota
	StatusRunning
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the job has left the scheduler.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Scheduler submits scripts to a batch system and reports job status.
type Scheduler interface {
	Submit(ctx context.Context, script Script) (JobHandle, error)
	Poll(ctx context.Context, handle JobHandle) (Status, error)
}
