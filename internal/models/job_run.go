package models

import "time"

// JobRun describes one execution of a scheduled job.
type JobRun struct {
	Job       string        `json:"job"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r JobRun) Failed() bool {
	return r.Error != ""
}
