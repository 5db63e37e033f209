package provisioner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realies/rpi-compute-node/internal/core/domain/provision"
)

// scriptedStep is a test double whose check/apply behavior is fixed up
// front and whose invocations are recorded into a shared trace.
type scriptedStep struct {
	name     string
	status   provision.Status
	checkErr error
	applyErr error
	trace    *[]string
}

func (s *scriptedStep) Name() string    { return s.name }
func (s *scriptedStep) Summary() string { return "summary of " + s.name }

func (s *scriptedStep) Check(ctx context.Context) (provision.Status, error) {
	*s.trace = append(*s.trace, "check "+s.name)
	return s.status, s.checkErr
}

func (s *scriptedStep) Apply(ctx context.Context) error {
	*s.trace = append(*s.trace, "apply "+s.name)
	return s.applyErr
}

func TestRun_AppliesPendingSkipsSatisfied(t *testing.T) {
	var trace []string
	plan, err := provision.NewPlan(
		&scriptedStep{name: "a", status: provision.Pending("todo"), trace: &trace},
		&scriptedStep{name: "b", status: provision.Satisfied("done"), trace: &trace},
		&scriptedStep{name: "c", status: provision.Pending("todo"), trace: &trace},
	)
	require.NoError(t, err)

	p := New(plan, nil, "test-run")
	require.NoError(t, p.Run(context.Background()))

	assert.Equal(t, []string{
		"check a", "apply a",
		"check b",
		"check c", "apply c",
	}, trace, "satisfied steps are skipped, order is strictly sequential")
}

func TestRun_StopsAtFirstFatalApply(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	plan, err := provision.NewPlan(
		&scriptedStep{name: "a", status: provision.Pending(""), trace: &trace},
		&scriptedStep{name: "b", status: provision.Pending(""), applyErr: boom, trace: &trace},
		&scriptedStep{name: "c", status: provision.Pending(""), trace: &trace},
	)
	require.NoError(t, err)

	p := New(plan, nil, "test-run")
	err = p.Run(context.Background())
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "step b")

	assert.Equal(t, []string{
		"check a", "apply a",
		"check b", "apply b",
	}, trace, "no step after the fatal one runs")
}

func TestRun_CheckErrorIsFatal(t *testing.T) {
	var trace []string
	inconsistent := errors.New("marker present but backup file is missing")
	plan, err := provision.NewPlan(
		&scriptedStep{name: "a", status: provision.Satisfied(""), trace: &trace},
		&scriptedStep{name: "b", checkErr: inconsistent, trace: &trace},
	)
	require.NoError(t, err)

	p := New(plan, nil, "test-run")
	err = p.Run(context.Background())
	require.ErrorIs(t, err, inconsistent)

	assert.Equal(t, []string{"check a", "check b"}, trace,
		"a failing check never reaches apply")
}

func TestEvaluate_CollectsEveryReport(t *testing.T) {
	var trace []string
	probeErr := errors.New("probe broken")
	plan, err := provision.NewPlan(
		&scriptedStep{name: "a", status: provision.Satisfied("ok"), trace: &trace},
		&scriptedStep{name: "b", checkErr: probeErr, trace: &trace},
		&scriptedStep{name: "c", status: provision.Pending("todo"), trace: &trace},
	)
	require.NoError(t, err)

	reports := New(plan, nil, "test-run").Evaluate(context.Background())
	require.Len(t, reports, 3)

	assert.True(t, reports[0].Converged)
	assert.Equal(t, "ok", reports[0].Detail)

	assert.ErrorIs(t, reports[1].Err, probeErr)

	assert.False(t, reports[2].Converged)
	assert.Equal(t, "todo", reports[2].Detail)

	assert.NotContains(t, trace, "apply a", "evaluate never applies")
	assert.NotContains(t, trace, "apply c", "evaluate never applies")
}
