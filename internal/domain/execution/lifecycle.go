package execution

import (
	"fmt"
	"sync"

	"github.com/felixgeelhaar/statekit"
)

// State is the provisioner lifecycle state.
type State string

const (
	stateNotStarted = "not_started"
	stateRunning    = "running"
	stateDone       = "done"
	stateFailed     = "failed"
)

// Lifecycle states.
const (
	StateNotStarted State = stateNotStarted
	StateRunning    State = stateRunning
	StateDone       State = stateDone
	StateFailed     State = stateFailed
)

// Lifecycle events.
const (
	EventStart   = "START"
	EventSucceed = "SUCCEED"
	EventFail    = "FAIL"
	EventReset   = "RESET"
)

// Position identifies the step the lifecycle is at: the step being run
// while RUNNING, the failed step once FAILED.
type Position struct {
	Index  int
	StepID string
	Err    error
}

// lifecycleContext is the machine's extended state.
type lifecycleContext struct {
	Runs     int
	Position Position
}

// lifecycle wraps the statekit interpreter. Actions write through the
// captured pointer so the position survives the interpreter's copies.
type lifecycle struct {
	mu     sync.RWMutex
	ctx    lifecycleContext
	interp *statekit.Interpreter[lifecycleContext]
}

func newLifecycle() (*lifecycle, error) {
	l := &lifecycle{ctx: lifecycleContext{Position: Position{Index: -1}}}

	machine, err := statekit.NewMachine[lifecycleContext]("labelhost-provisioner").
		WithInitial(stateNotStarted).
		WithContext(l.ctx).
		WithAction("recordStart", func(_ *lifecycleContext, _ statekit.Event) {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.ctx.Runs++
			l.ctx.Position = Position{Index: -1}
		}).
		WithAction("recordFailure", func(_ *lifecycleContext, event statekit.Event) {
			if pos, ok := event.Payload.(Position); ok {
				l.mu.Lock()
				defer l.mu.Unlock()
				l.ctx.Position = pos
			}
		}).
		State(stateNotStarted).
		On(EventStart).Target(stateRunning).Done().
		State(stateRunning).
		OnEntry("recordStart").
		On(EventSucceed).Target(stateDone).
		On(EventFail).Target(stateFailed).Done().
		State(stateDone).
		On(EventReset).Target(stateNotStarted).Done().
		State(stateFailed).
		OnEntry("recordFailure").
		On(EventReset).Target(stateNotStarted).Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build provisioner lifecycle: %w", err)
	}

	l.interp = statekit.NewInterpreter(machine)
	l.interp.Start()
	return l, nil
}

func (l *lifecycle) state() State {
	return State(l.interp.State().Value)
}

// start moves a finished lifecycle back to not_started, then to running.
func (l *lifecycle) start() error {
	switch l.state() {
	case StateRunning:
		return ErrAlreadyRunning
	case StateDone, StateFailed:
		l.interp.Send(statekit.Event{Type: EventReset})
	case StateNotStarted:
	}
	l.interp.Send(statekit.Event{Type: EventStart})
	if l.state() != StateRunning {
		return fmt.Errorf("provisioner lifecycle did not enter %s (at %s)", StateRunning, l.state())
	}
	return nil
}

func (l *lifecycle) advance(index int, stepID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ctx.Position = Position{Index: index, StepID: stepID}
}

func (l *lifecycle) succeed() {
	l.interp.Send(statekit.Event{Type: EventSucceed})
}

func (l *lifecycle) fail(pos Position) {
	l.interp.Send(statekit.Event{Type: EventFail, Payload: pos})
}

func (l *lifecycle) position() Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ctx.Position
}

func (l *lifecycle) runs() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ctx.Runs
}
