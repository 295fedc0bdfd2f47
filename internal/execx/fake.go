package execx

import (
	"context"
	"errors"
	"sync"
)

// Fake is a Runner for tests. Handler decides the result of each call and
// every call is recorded in order.
type Fake struct {
	Handler func(cmd Cmd) (Result, error)

	mu    sync.Mutex
	calls []Cmd
}

func (f *Fake) Run(ctx context.Context, cmd Cmd) (Result, error) {
	if len(cmd.Argv) == 0 {
		return Result{ExitCode: -1}, errors.New("execx: empty argv")
	}

	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	if f.Handler == nil {
		return Result{}, nil
	}
	return f.Handler(cmd)
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Cmd, len(f.calls))
	copy(out, f.calls)
	return out
}
