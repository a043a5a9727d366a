package util

import "errors"

var (
	ErrValidation        = errors.New("invalid session data")
	ErrStatsNotFound     = errors.New("user stats not found")
	ErrRefreshInProgress = errors.New("leaderboard refresh already in progress")
	ErrQueueFull         = errors.New("background queue is full")
	ErrDuplicateEvent    = errors.New("session event already processed")
)
