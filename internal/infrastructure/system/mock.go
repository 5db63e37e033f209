package system

import (
	"context"
	"strings"
)

// MockRunner records every command instead of executing it. Hook functions
// override the default always-succeed behavior per test.
type MockRunner struct {
	// Commands holds each invocation as a single space-joined string.
	Commands []string

	RunFunc      func(name string, args ...string) error
	OutputFunc   func(name string, args ...string) (string, error)
	LookPathFunc func(name string) (string, error)
}

// Run implements ports.CommandRunner for tests.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) error {
	m.record(name, args)
	if m.RunFunc != nil {
		return m.RunFunc(name, args...)
	}
	return nil
}

// Output implements ports.CommandRunner for tests.
func (m *MockRunner) Output(ctx context.Context, name string, args ...string) (string, error) {
	m.record(name, args)
	if m.OutputFunc != nil {
		return m.OutputFunc(name, args...)
	}
	return "", nil
}

// LookPath implements ports.CommandRunner for tests.
func (m *MockRunner) LookPath(name string) (string, error) {
	if m.LookPathFunc != nil {
		return m.LookPathFunc(name)
	}
	return "/usr/bin/" + name, nil
}

func (m *MockRunner) record(name string, args []string) {
	cmd := name
	if len(args) > 0 {
		cmd = name + " " + strings.Join(args, " ")
	}
	m.Commands = append(m.Commands, cmd)
}
