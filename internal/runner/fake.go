package runner

import (
	"context"
	"sync"
	"time"
)

// Fake is a scripted Runner for tests: a queue of results consumed in
// order per call, or per-command when Scripts is populated. Follows a
// func-field mock pattern, adapted to a queue since the worker loop
// under test calls Run repeatedly for the same command across retries.
type Fake struct {
	mu sync.Mutex

	// Scripts, keyed by command string, is consumed front-to-back per
	// call to that command. Falls back to Default when exhausted or the
	// command has no entry.
	Scripts map[string][]Result

	// Default is returned when Scripts has no queued result for a
	// command.
	Default Result

	// Delay, if set, is slept before Run returns, standing in for a
	// long-running shell command so tests can observe what a caller's
	// context looks like partway through execution.
	Delay time.Duration

	// Calls records every command this Fake was invoked with, in order.
	Calls []string
}

// NewFake returns a Fake that succeeds (exit 0) by default.
func NewFake() *Fake {
	return &Fake{Scripts: map[string][]Result{}}
}

// Enqueue appends a scripted result for command.
func (f *Fake) Enqueue(command string, r Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Scripts[command] = append(f.Scripts[command], r)
}

func (f *Fake) Run(ctx context.Context, command string) Result {
	f.mu.Lock()
	f.Calls = append(f.Calls, command)

	queue := f.Scripts[command]
	var next Result
	if len(queue) == 0 {
		next = f.Default
	} else {
		next = queue[0]
		f.Scripts[command] = queue[1:]
	}
	delay := f.Delay
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if ctx.Err() != nil && next.HostError == "" {
		next.HostError = "caller context ended: " + ctx.Err().Error()
	}
	return next
}

// CallCount returns the number of times Run was invoked for command.
func (f *Fake) CallCount(command string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == command {
			n++
		}
	}
	return n
}

// TotalCalls returns the number of Run invocations across all commands.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
