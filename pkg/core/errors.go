package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrParse             = errors.New("invalid notebook json")
	ErrShape             = errors.New("unexpected multiline shape")
	ErrNotFound          = errors.New("notebook not found")
	ErrExists            = errors.New("notebook already exists")
	ErrReadOnly          = errors.New("repository is in read-only mode")
	ErrUnsupportedFormat = errors.New("unsupported notebook format")
	ErrInvalidID         = errors.New("invalid notebook id")
)

// ParseError is returned when notebook text is not a JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrParse, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrParse) hold for every ParseError.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ShapeError is returned in strict mode when a multi-line field holds
// something other than a string, a string array or a mime-bundle.
type ShapeError struct {
	Path string // e.g. "cells[3].outputs[0].data"
	Kind Kind
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s at %s: got %s", ErrShape, e.Path, e.Kind)
}

// Is makes errors.Is(err, ErrShape) hold for every ShapeError.
func (e *ShapeError) Is(target error) bool { return target == ErrShape }
