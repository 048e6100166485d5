package scheduler

import "errors"

var (
	// ErrInvalidSchedule is returned for cron expressions that do not parse
	ErrInvalidSchedule = errors.New("invalid cron schedule")

	// ErrAlreadyStarted is returned when jobs are added after Start
	ErrAlreadyStarted = errors.New("scheduler already started")
)
