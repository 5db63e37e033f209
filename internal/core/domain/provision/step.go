package provision

import (
	"context"
	"fmt"
)

// Step is one unit of the provisioning sequence. Check reports whether the
// host already satisfies the step so Apply can be skipped; Apply mutates the
// host toward the desired state. An error returned from either is fatal to
// the run — steps tolerate their own best-effort failures internally.
type Step interface {
	// Name is a short stable identifier, used in logs and status output.
	Name() string

	// Summary is a one-line human description of the desired state.
	Summary() string

	// Check reports whether the host already satisfies this step.
	Check(ctx context.Context) (Status, error)

	// Apply converges the host. It must be safe to call when Check already
	// reported convergence.
	Apply(ctx context.Context) error
}

// Status is the result of a convergence check.
type Status struct {
	Converged bool
	// Detail explains what would change (or why nothing would), for
	// dry-run and status output.
	Detail string
}

// Satisfied builds a converged Status.
func Satisfied(detail string) Status {
	return Status{Converged: true, Detail: detail}
}

// Pending builds an unconverged Status.
func Pending(detail string) Status {
	return Status{Converged: false, Detail: detail}
}

// Plan is the fixed ordered list of steps for one run.
type Plan struct {
	steps []Step
}

// NewPlan creates a Plan, rejecting duplicate step names.
func NewPlan(steps ...Step) (*Plan, error) {
	seen := make(map[string]bool, len(steps))
	for _, s := range steps {
		if s.Name() == "" {
			return nil, fmt.Errorf("step name cannot be empty")
		}
		if seen[s.Name()] {
			return nil, fmt.Errorf("duplicate step name: %s", s.Name())
		}
		seen[s.Name()] = true
	}
	return &Plan{steps: steps}, nil
}

// Steps returns the steps in execution order.
func (p *Plan) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Len returns the number of steps.
func (p *Plan) Len() int {
	return len(p.steps)
}

// StepReport pairs a step with its evaluated status, for status/dry-run
// output.
type StepReport struct {
	Name      string
	Summary   string
	Converged bool
	Detail    string
	Err       error
}
