package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/labelhost/internal/domain/compiler"
	"github.com/felixgeelhaar/labelhost/internal/ports"
)

// fakeHost records the effects steps have applied and every call made.
type fakeHost struct {
	present map[string]bool
	events  []string
}

func newFakeHost(present ...string) *fakeHost {
	h := &fakeHost{present: make(map[string]bool)}
	for _, id := range present {
		h.present[id] = true
	}
	return h
}

func (h *fakeHost) applies() []string {
	var out []string
	for _, e := range h.events {
		if len(e) > 6 && e[:6] == "apply:" {
			out = append(out, e[6:])
		}
	}
	return out
}

// hostStep is satisfied once its effect is present on the fake host.
type hostStep struct {
	id       compiler.StepID
	host     *fakeHost
	checkErr error
	applyErr error
}

func newHostStep(host *fakeHost, id string) *hostStep {
	return &hostStep{id: compiler.MustNewStepID(id), host: host}
}

func (s *hostStep) ID() compiler.StepID { return s.id }

func (s *hostStep) Check(_ compiler.RunContext) (compiler.StepStatus, error) {
	s.host.events = append(s.host.events, "check:"+s.id.String())
	if s.checkErr != nil {
		return compiler.StatusUnknown, s.checkErr
	}
	if s.host.present[s.id.String()] {
		return compiler.StatusSatisfied, nil
	}
	return compiler.StatusNeedsApply, nil
}

func (s *hostStep) Plan(_ compiler.RunContext) (compiler.Diff, error) {
	return compiler.NewDiff(compiler.DiffTypeAdd, "fake", s.id.String(), "", "present"), nil
}

func (s *hostStep) Apply(_ compiler.RunContext) error {
	s.host.events = append(s.host.events, "apply:"+s.id.String())
	if s.applyErr != nil {
		return s.applyErr
	}
	s.host.present[s.id.String()] = true
	return nil
}

func (s *hostStep) Explain(_ compiler.ExplainContext) compiler.Explanation {
	return compiler.NewExplanation("Fake "+s.id.String(), "Fake step", nil)
}

// referenceStepIDs mirrors the default provisioning order.
var referenceStepIDs = []string{
	"host:privileges",
	"yum:install:docker",
	"yum:install:git",
	"service:start:docker",
	"service:enable:docker",
	"user:group:ec2-user:docker",
	"binary:download:docker-compose",
	"git:clone:/opt/cvat",
	"compose:build:cvat",
	"compose:up:cvat",
	"container:exec:cvat",
}

func referenceSteps(host *fakeHost) ([]compiler.Step, map[string]*hostStep) {
	steps := make([]compiler.Step, 0, len(referenceStepIDs))
	byID := make(map[string]*hostStep, len(referenceStepIDs))
	for _, id := range referenceStepIDs {
		s := newHostStep(host, id)
		steps = append(steps, s)
		byID[id] = s
	}
	return steps, byID
}

// recordingLogger keeps formatted log lines for assertions.
type recordingLogger struct {
	mu     *sync.Mutex
	lines  *[]string
	fields []ports.Field
}

func newRecordingLogger() *recordingLogger {
	return &recordingLogger{mu: &sync.Mutex{}, lines: &[]string{}}
}

func (l *recordingLogger) record(level, msg string, fields []ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := append(append([]ports.Field{}, l.fields...), fields...)
	line := level + " " + msg
	for _, f := range all {
		line += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	*l.lines = append(*l.lines, line)
}

func (l *recordingLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(*l.lines))
	copy(out, *l.lines)
	return out
}

func (l *recordingLogger) Debug(_ context.Context, msg string, fields ...ports.Field) {
	l.record("DEBUG", msg, fields)
}
func (l *recordingLogger) Info(_ context.Context, msg string, fields ...ports.Field) {
	l.record("INFO", msg, fields)
}
func (l *recordingLogger) Warn(_ context.Context, msg string, fields ...ports.Field) {
	l.record("WARN", msg, fields)
}
func (l *recordingLogger) Error(_ context.Context, msg string, fields ...ports.Field) {
	l.record("ERROR", msg, fields)
}
func (l *recordingLogger) With(fields ...ports.Field) ports.Logger {
	return &recordingLogger{mu: l.mu, lines: l.lines, fields: append(append([]ports.Field{}, l.fields...), fields...)}
}
func (l *recordingLogger) Level() ports.Level      { return ports.LevelDebug }
func (l *recordingLogger) SetLevel(_ ports.Level)  {}
func (l *recordingLogger) Sync() error             { return nil }

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	started  []string
	finished []string
}

func (o *recordingObserver) StepStarted(_, _ int, id compiler.StepID) {
	o.started = append(o.started, id.String())
}

func (o *recordingObserver) StepFinished(_, _ int, result StepResult) {
	o.finished = append(o.finished, result.StepID().String()+"="+result.Outcome())
}
