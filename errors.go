package main

import (
	"github.com/pkg/errors"
)

// Pipeline stage sentinels, matched with errors.Is.
var (
	ErrLoad             = errors.New("load error")
	ErrInvalidDimension = errors.New("invalid dimension")
	ErrInvalidGrid      = errors.New("invalid grid")
	ErrSerialization    = errors.New("serialization error")
)

// StageError ties a stage sentinel to the error that caused it.
type StageError struct {
	Stage error
	Err   error
}

func (e *StageError) Error() string {
	if e.Err == nil {
		return e.Stage.Error()
	}
	return e.Stage.Error() + ": " + e.Err.Error()
}

func (e *StageError) Unwrap() []error {
	return []error{e.Stage, e.Err}
}

func stageErrorf(stage, err error, format string, args ...interface{}) error {
	if err == nil {
		return &StageError{Stage: stage, Err: errors.Errorf(format, args...)}
	}
	return &StageError{Stage: stage, Err: errors.Wrapf(err, format, args...)}
}
