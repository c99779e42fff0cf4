package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrInputTooLong is returned when text exceeds the hard cap. Nothing
	// is chunked or fetched.
	ErrInputTooLong = errors.New("input too long")
	// ErrNoSession is returned by transport calls when nothing was started.
	ErrNoSession = errors.New("no reading session")
)

// InputError describes rejected input.
type InputError struct {
	Length int
	Limit  int
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input too long: %d characters (limit %d)", e.Length, e.Limit)
}

// Is matches ErrInputTooLong.
func (e *InputError) Is(target error) bool {
	return target == ErrInputTooLong
}
