/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package fetchcache

import (
	"bytes"
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrEmptyKey is reported when Fetch is called with the zero value of the key type.
var ErrEmptyKey = errors.New("empty key")

// ErrGoexit is the failure of a lookup that called runtime.Goexit.
var ErrGoexit = errors.New("runtime.Goexit was called")

// PanicError is the failure of a lookup that panicked. It holds the panic value and stack trace.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("lookup panicked: %v\n\n%s", p.Value, p.Stack)
}

// Unwrap returns the panic value if it is an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

func newPanicError(v interface{}) error {
	stack := debug.Stack()

	// Drop the "goroutine N [running]:" line, it describes the lookup goroutine which is about to exit.
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &PanicError{Value: v, Stack: stack}
}
