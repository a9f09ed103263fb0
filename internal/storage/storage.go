package storage

import "errors"

var (
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrAlreadyOnDashboard = errors.New("course already on dashboard")
)
