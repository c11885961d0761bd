package domain

import "errors"

var (
	ErrControlNotFound   = errors.New("control not found")
	ErrRunNotFound       = errors.New("run not found")
	ErrSchedulerRunning  = errors.New("scheduler already running")
	ErrWebAPIRunning     = errors.New("web api already running")
	ErrControlNameExists = errors.New("control with this name already exists")
	ErrRunNotCancellable = errors.New("run is not in a cancellable state")
	ErrInvalidControlType = errors.New("invalid control type")
)
