package services

import "time"

// Clock abstracts the current instant so the eligibility window and the
// recurrence math can be tested against a fixed point in time.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}
