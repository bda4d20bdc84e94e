package entity

var transitions = map[JobStatus][]JobStatus{
	StatusQueued:  {StatusRunning, StatusCancelled},
	StatusRunning: {StatusCompleted, StatusFailed, StatusPaused, StatusCancelled, StatusQueued},
	StatusPaused:  {StatusQueued, StatusCancelled},
}

// CanTransition reports whether the lifecycle allows moving from one status to another.
// Running -> Queued is reserved for retries and shutdown requeues.
func CanTransition(from, to JobStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Filter selects jobs for listing. Empty fields match everything.
type Filter struct {
	Statuses []JobStatus
	Kind     JobKind
}

func (f Filter) Match(j *Job) bool {
	if f.Kind != "" && j.Kind != f.Kind {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if j.Status == s {
			return true
		}
	}
	return false
}
