package agent

import (
	"sort"
	"time"
)

// ScheduledIDs returns the ids of all live jobs, sorted.
func (a *Agent) ScheduledIDs() []ID {
	ids := a.allIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// UpcomingChimeAt returns the next firing time of a job, or ok=false
// when the job is unknown or has nothing pending.
func (a *Agent) UpcomingChimeAt(id ID) (time.Time, bool) {
	e, ok := a.getJob(id)
	if !ok {
		return time.Time{}, false
	}
	return e.handle.CurrentAt()
}

// UpcomingChimes maps every job id to its next firing time. Jobs with
// nothing pending are omitted.
func (a *Agent) UpcomingChimes() map[ID]time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[ID]time.Time, len(a.jobs))
	for id, e := range a.jobs {
		if t, ok := e.handle.CurrentAt(); ok {
			out[id] = t
		}
	}
	return out
}

// UntilNextChime returns the duration until the earliest upcoming
// chime across all jobs, or ok=false when nothing is pending.
func (a *Agent) UntilNextChime() (time.Duration, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var min time.Duration
	found := false
	for _, e := range a.jobs {
		d, ok := e.handle.UntilCurrent()
		if !ok || d < 0 {
			continue
		}
		if !found || d < min {
			min = d
			found = true
		}
	}
	return min, found
}

// Jobs returns a snapshot of all jobs, sorted by id.
func (a *Agent) Jobs() []JobInfo {
	a.mu.RLock()
	infos := make([]JobInfo, 0, len(a.jobs))
	for id, e := range a.jobs {
		info := JobInfo{ID: id, State: e.state}
		if t, ok := e.handle.CurrentAt(); ok {
			info.Next = t
		}
		infos = append(infos, info)
	}
	a.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}
