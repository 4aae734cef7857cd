// Package fake provides an in-memory automation engine. It interprets the
// bound program without touching any cloud API.
package fake

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/pendeploy/compute-deployer/lib/gcp"
	"github.com/pendeploy/compute-deployer/models"
	"github.com/pendeploy/compute-deployer/services"
)

// Operations recorded in Calls.
const (
	OpCreateOrSelect = "createOrSelect"
	OpSetConfig      = "setConfig"
	OpRefresh        = "refresh"
	OpUp             = "up"
)

// Call is one recorded engine invocation.
type Call struct {
	Op    string
	Stack string
	Key   string
	Value string
}

// Engine is a services.Engine that keeps stacks in memory.
type Engine struct {
	// Errors fails the named operation (Op* constants) with the given error.
	Errors map[string]error
	// Outputs, when set, replaces the outputs derived from the program.
	Outputs models.OutputMap
	// Summary, when set, replaces the generated update summary.
	Summary *models.UpdateSummary
	// BeforeUp runs at the start of every Up; tests use it to hold a stack.
	BeforeUp func(ctx context.Context) error

	mu     sync.Mutex
	stacks map[string]*Stack
	calls  []Call
}

func NewEngine() *Engine {
	return &Engine{stacks: make(map[string]*Stack)}
}

var _ services.Engine = (*Engine)(nil)

// CreateOrSelectStack returns the existing stack for the names or creates it.
// The program is rebound on every call.
func (e *Engine) CreateOrSelectStack(_ context.Context, projectName, stackName string, program services.Program) (services.Stack, error) {
	key := services.StackKey(projectName, stackName)
	if err := e.record(Call{Op: OpCreateOrSelect, Stack: key}); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stacks == nil {
		e.stacks = make(map[string]*Stack)
	}
	st, ok := e.stacks[key]
	if !ok {
		st = &Stack{engine: e, key: key, name: stackName, config: map[string]string{}}
		e.stacks[key] = st
	}
	st.mu.Lock()
	st.program = program
	st.mu.Unlock()
	return st, nil
}

// Calls returns the invocations seen so far, in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// StackCount returns the number of distinct stacks created.
func (e *Engine) StackCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.stacks)
}

// Stack returns the stack stored under projectName/stackName.
func (e *Engine) Stack(projectName, stackName string) (*Stack, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.stacks[services.StackKey(projectName, stackName)]
	return st, ok
}

func (e *Engine) record(c Call) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
	return e.Errors[c.Op]
}

// Stack is an in-memory stack. Its state is the last InstanceSpec applied by Up.
type Stack struct {
	engine *Engine
	key    string
	name   string

	mu       sync.Mutex
	program  services.Program
	config   map[string]string
	deployed *gcp.InstanceSpec
	version  int
}

var _ services.Stack = (*Stack)(nil)

func (s *Stack) Name() string { return s.name }

func (s *Stack) SetConfig(_ context.Context, key, value string) error {
	if err := s.engine.record(Call{Op: OpSetConfig, Stack: s.key, Key: key, Value: value}); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}

// Config returns a copy of the stack configuration.
func (s *Stack) Config() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.config))
	for k, v := range s.config {
		out[k] = v
	}
	return out
}

// Deployed returns the InstanceSpec applied by the last successful Up.
func (s *Stack) Deployed() (gcp.InstanceSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deployed == nil {
		return gcp.InstanceSpec{}, false
	}
	return *s.deployed, true
}

func (s *Stack) Refresh(_ context.Context, sink io.Writer) error {
	if err := s.engine.record(Call{Op: OpRefresh, Stack: s.key}); err != nil {
		return err
	}
	s.mu.Lock()
	deployed := s.deployed
	s.mu.Unlock()

	writeLine(sink, "Refreshing (%s):", s.name)
	if deployed != nil {
		writeLine(sink, "    gcp:compute:Instance %s  [refresh]", deployed.Name)
	}
	writeLine(sink, "Resources: %d unchanged", boolToInt(deployed != nil))
	return nil
}

func (s *Stack) Up(ctx context.Context, sink io.Writer) (models.DeploymentResult, error) {
	if err := s.engine.record(Call{Op: OpUp, Stack: s.key}); err != nil {
		return models.DeploymentResult{}, err
	}
	if s.engine.BeforeUp != nil {
		if err := s.engine.BeforeUp(ctx); err != nil {
			return models.DeploymentResult{}, err
		}
	}
	s.mu.Lock()
	program := s.program
	s.mu.Unlock()
	if program == nil {
		return models.DeploymentResult{}, fmt.Errorf("stack %s has no program", s.key)
	}

	start := time.Now().UTC()
	spec := program()
	if !instanceNamePattern.MatchString(spec.Name) {
		writeLine(sink, "    gcp:compute:Instance %s  [create] failed", spec.Name)
		return models.DeploymentResult{}, fmt.Errorf(
			"googleapi: Error 400: Invalid value for field 'resource.name': '%s'. Must be a match of regex '%s', invalid",
			spec.Name, instanceNameRule)
	}

	s.mu.Lock()
	op := "create"
	if s.deployed != nil {
		op = "same"
		if s.deployed.Name != spec.Name || s.deployed.MachineType != spec.MachineType || s.deployed.Zone != spec.Zone {
			op = "replace"
		}
	}
	s.deployed = &spec
	s.version++
	version := s.version
	s.mu.Unlock()

	writeLine(sink, "Updating (%s):", s.name)
	writeLine(sink, "    gcp:compute:Instance %s  [%s]", spec.Name, op)
	writeLine(sink, "Resources: 1 %s", op)

	outputs := s.engine.Outputs
	if outputs == nil {
		outputs = models.OutputMap{
			models.OutputInstanceName:       {Value: spec.Name},
			models.OutputInstanceExternalIP: {Value: fakeIP(spec.Name)},
		}
	}

	summary := models.UpdateSummary{
		Kind:            "update",
		StartTime:       start.Format(time.RFC3339),
		Message:         "fake update",
		Result:          "succeeded",
		Version:         version,
		ResourceChanges: &map[string]int{op: 1},
	}
	end := time.Now().UTC().Format(time.RFC3339)
	summary.EndTime = &end
	if s.engine.Summary != nil {
		summary = *s.engine.Summary
	}

	return models.DeploymentResult{Outputs: outputs, Summary: summary}, nil
}

// Compute Engine resource names follow RFC 1035.
const instanceNameRule = `(?:[a-z](?:[-a-z0-9]{0,61}[a-z0-9])?)`

var instanceNamePattern = regexp.MustCompile(`^` + instanceNameRule + `$`)

// fakeIP derives a stable TEST-NET-3 address from the instance name.
func fakeIP(name string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	return fmt.Sprintf("203.0.113.%d", h.Sum32()%254+1)
}

func writeLine(w io.Writer, format string, args ...interface{}) {
	if w == nil {
		return
	}
	_, _ = fmt.Fprintf(w, format+"\n", args...)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
