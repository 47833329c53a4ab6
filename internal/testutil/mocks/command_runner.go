// Package mocks provides test doubles for testing.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// CommandRunner is a thread-safe test double for ports.CommandRunner.
// A command may be registered with a sequence of results; each call
// consumes the next one and the last result repeats.
type CommandRunner struct {
	mu      sync.Mutex
	results map[string][]ports.CommandResult
	errors  map[string]error
	calls   []ports.CommandCall
}

// NewCommandRunner creates a new CommandRunner mock.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		results: make(map[string][]ports.CommandResult),
		errors:  make(map[string]error),
		calls:   make([]ports.CommandCall, 0),
	}
}

// AddResult registers an expected command and its result.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.AddResults(command, args, result)
}

// AddResults registers successive results for the same command, e.g. a
// probe that reports absent before Apply and present afterwards.
func (m *CommandRunner) AddResults(command string, args []string, results ...ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := buildKey(command, args)
	m.results[key] = append(m.results[key], results...)
}

// SetResult replaces any results registered for the command.
func (m *CommandRunner) SetResult(command string, args []string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[buildKey(command, args)] = []ports.CommandResult{result}
}

// AddError registers an expected command that should return an error.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := buildKey(command, args)
	m.errors[key] = err
}

// Run executes a mock command.
func (m *CommandRunner) Run(ctx context.Context, command string, args ...string) (ports.CommandResult, error) {
	return m.RunWith(ctx, ports.CommandOptions{}, command, args...)
}

// RunWith executes a mock command and records the options it was given.
func (m *CommandRunner) RunWith(_ context.Context, opts ports.CommandOptions, command string, args ...string) (ports.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ports.CommandCall{
		Command: command,
		Args:    args,
		Options: opts,
	})

	key := buildKey(command, args)

	// Check for registered error first
	if err, ok := m.errors[key]; ok {
		return ports.CommandResult{}, err
	}

	queue, ok := m.results[key]
	if !ok || len(queue) == 0 {
		return ports.CommandResult{}, fmt.Errorf("no mock result for command: %s %v", command, args)
	}
	result := queue[0]
	if len(queue) > 1 {
		m.results[key] = queue[1:]
	}
	return result, nil
}

// Calls returns all recorded command invocations.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Return a copy to prevent data races
	calls := make([]ports.CommandCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// CallCount returns how many times command was invoked with args.
func (m *CommandRunner) CallCount(command string, args ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := buildKey(command, args)
	count := 0
	for _, call := range m.calls {
		if buildKey(call.Command, call.Args) == key {
			count++
		}
	}
	return count
}

// Reset clears all registered results, errors, and recorded calls.
func (m *CommandRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = make(map[string][]ports.CommandResult)
	m.errors = make(map[string]error)
	m.calls = make([]ports.CommandCall, 0)
}

// buildKey creates a unique key for a command and its arguments.
func buildKey(command string, args []string) string {
	return command + ":" + strings.Join(args, ":")
}

// Ensure CommandRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*CommandRunner)(nil)
