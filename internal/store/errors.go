package store

import "errors"

var (
	ErrConflict    = errors.New("slot conflict")
	ErrNotFound    = errors.New("not found")
	ErrStale       = errors.New("appointment changed concurrently")
	ErrNoSchedule  = errors.New("schedule configuration not found")
	ErrBadSchedule = errors.New("invalid schedule configuration")
)
