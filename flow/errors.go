package flow

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/shelterly/automation/model"
)

const (
	JOB_MESSAGE_FRAMES      = 10
	EXECUTION_RECORD_FRAMES = 20
	maxCapturedFrames       = 32
)

type CycleError struct {
	BlockId string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle detected at block %s", e.BlockId)
}

type StepsExceededError struct {
	Limit int
}

func (e *StepsExceededError) Error() string {
	return fmt.Sprintf("run exceeded %d block steps", e.Limit)
}

type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// BlockError is a failure raised while one block ran, with the stack at the
// point it was captured.
type BlockError struct {
	BlockId string
	Kind    model.BlockKind
	Err     error
	Stack   []string
}

func (e *BlockError) Error() string {
	return fmt.Sprintf("block %s (%s): %v", e.BlockId, e.Kind, e.Err)
}

func (e *BlockError) Unwrap() error {
	return e.Err
}

func newBlockError(b *model.Block, err error, skip int) *BlockError {
	return &BlockError{BlockId: b.Id, Kind: b.Kind, Err: err, Stack: callers(skip + 1)}
}

func callers(skip int) []string {
	pcs := make([]uintptr, maxCapturedFrames)
	n := runtime.Callers(skip+2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	var out []string
	for {
		frame, more := frames.Next()
		out = append(out, fmt.Sprintf("%s:%d in %s", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return out
}

// Class names the concrete type of the innermost error in err's chain.
func Class(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	return strings.TrimPrefix(fmt.Sprintf("%T", err), "*")
}

// Stack returns the stack carried by err's BlockError, or the caller's stack
// when err has none.
func Stack(err error) []string {
	var be *BlockError
	if errors.As(err, &be) && len(be.Stack) > 0 {
		return be.Stack
	}
	return callers(1)
}

// Describe splits err into the class, message and at most frames stack
// entries recorded on jobs and execution records.
func Describe(err error, frames int) (class string, message string, stack []string) {
	stack = Stack(err)
	if len(stack) > frames {
		stack = stack[:frames]
	}
	return Class(err), err.Error(), stack
}
