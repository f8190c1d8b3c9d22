package engine

import (
	"fmt"
	"time"
)

// Passed counts environments that finished with the success status.
func (r RunResult) Passed() int {
	n := 0
	for _, e := range r.Envs {
		if e.Status.Passed() {
			n++
		}
	}
	return n
}

// ExitCode is 0 when every environment passed and the run did not error.
func (r RunResult) ExitCode() int {
	if r.Err != nil || r.Passed() != len(r.Envs) {
		return 1
	}
	return 0
}

func (r RunResult) String() string {
	if r.Err != nil {
		return fmt.Sprintf("error: %v", r.Err)
	}
	id := r.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("%d/%d passed in %s [%s]", r.Passed(), len(r.Envs), r.Duration.Round(10*time.Millisecond), id)
}
