package engine

import "errors"

// ErrClosed is returned when work is submitted to a stopped executor.
var ErrClosed = errors.New("executor closed")
