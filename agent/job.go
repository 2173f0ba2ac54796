package agent

import (
	"time"

	"github.com/mewa/chime/chime"
)

// ID uniquely identifies a job within an agent.
type ID string

type State uint8

const (
	Initial State = iota
	Started
	Done
)

// Job pairs a callback with a factory producing its chime times. The
// factory is evaluated exactly once, when the job is scheduled.
type Job struct {
	Times func() chime.TimeSequence
	Run   chime.Callback
}

// JobInfo is a point-in-time view of one scheduled job.
type JobInfo struct {
	ID    ID
	State State
	Next  time.Time
}

type entry struct {
	handle *chime.Schedule
	state  State
}
