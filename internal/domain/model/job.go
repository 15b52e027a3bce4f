package model

// JobKind selects which per-team pass a sweep job runs.
type JobKind string

const (
	JobDetect JobKind = "detect"
	JobScore  JobKind = "score"
)

// Job is one unit of per-team sweep work flowing through the queue.
type Job struct {
	ID     string  // cycle|kind|team, also the checkpoint key
	Kind   JobKind // detect or score
	Cycle  string  // sweep cycle label, e.g. the UTC date
	TeamID string
	OrgID  string

	// Done receives the outcome. Workers call it exactly once.
	Done func(err error)
}

// JobID builds the checkpoint key for a job.
func JobID(cycle string, kind JobKind, teamID string) string {
	return cycle + "|" + string(kind) + "|" + teamID
}
