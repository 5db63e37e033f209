// Package provisioner runs the fixed provisioning sequence: evaluate each
// step's convergence check, apply the ones that are not satisfied, stop at
// the first fatal error. Strictly sequential; idempotency of the steps, not
// in-run rollback, is what makes an interrupted run safe to repeat.
package provisioner

import (
	"context"
	"fmt"

	"github.com/realies/rpi-compute-node/internal/core/domain/provision"
	"github.com/realies/rpi-compute-node/internal/core/ports"
)

// Provisioner executes a provision.Plan in order.
type Provisioner struct {
	plan   *provision.Plan
	logger ports.Logger
	runID  string
}

// New creates a Provisioner for the given plan.
func New(plan *provision.Plan, logger ports.Logger, runID string) *Provisioner {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Provisioner{plan: plan, logger: logger, runID: runID}
}

// Run walks the plan. Satisfied steps are skipped; any error from a check
// or apply aborts immediately with no partial-application recovery.
func (p *Provisioner) Run(ctx context.Context) error {
	steps := p.plan.Steps()
	p.logger.Infof("provisioning run %s: %d steps", p.runID, len(steps))

	for n, step := range steps {
		status, err := step.Check(ctx)
		if err != nil {
			p.logger.Errorf("[%d/%d] %s: check failed: %v", n+1, len(steps), step.Name(), err)
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
		if status.Converged {
			p.logger.Infof("[%d/%d] %s: already satisfied (%s)", n+1, len(steps), step.Name(), status.Detail)
			continue
		}
		p.logger.Infof("[%d/%d] %s: %s", n+1, len(steps), step.Name(), step.Summary())
		if err := step.Apply(ctx); err != nil {
			p.logger.Errorf("[%d/%d] %s: failed: %v", n+1, len(steps), step.Name(), err)
			return fmt.Errorf("step %s: %w", step.Name(), err)
		}
		p.logger.Infof("[%d/%d] %s: done", n+1, len(steps), step.Name())
	}

	p.logger.Infof("provisioning run %s complete; reboot to apply boot configuration", p.runID)
	return nil
}

// Evaluate runs every step's check without mutating anything, for dry-run
// and status output. Check errors are reported per step rather than
// aborting, so one broken probe does not hide the rest of the picture.
func (p *Provisioner) Evaluate(ctx context.Context) []provision.StepReport {
	steps := p.plan.Steps()
	reports := make([]provision.StepReport, 0, len(steps))
	for _, step := range steps {
		report := provision.StepReport{Name: step.Name(), Summary: step.Summary()}
		status, err := step.Check(ctx)
		if err != nil {
			report.Err = err
		} else {
			report.Converged = status.Converged
			report.Detail = status.Detail
		}
		reports = append(reports, report)
	}
	return reports
}
