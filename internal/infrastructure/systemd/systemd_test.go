package systemd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realies/rpi-compute-node/internal/infrastructure/system"
)

func TestController_IsEnabled(t *testing.T) {
	tests := []struct {
		name   string
		output string
		err    error
		want   bool
	}{
		{name: "Enabled", output: "enabled", want: true},
		{name: "Disabled", output: "disabled", err: errors.New("exit status 1"), want: false},
		{name: "Masked", output: "masked", err: errors.New("exit status 1"), want: false},
		{name: "UnknownUnit", err: errors.New("exit status 4"), want: false},
		{name: "Static", output: "static", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &system.MockRunner{
				OutputFunc: func(name string, args ...string) (string, error) {
					return tt.output, tt.err
				},
			}
			got, err := NewController(runner).IsEnabled(context.Background(), "bluetooth")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestController_FixedArguments(t *testing.T) {
	runner := &system.MockRunner{}
	c := NewController(runner)
	ctx := context.Background()

	require.NoError(t, c.DisableNow(ctx, "triggerhappy"))
	require.NoError(t, c.EnableNow(ctx, "docker"))

	assert.Equal(t, []string{
		"systemctl disable --now triggerhappy",
		"systemctl enable --now docker",
	}, runner.Commands)
}

func TestController_ErrorsAreWrapped(t *testing.T) {
	failure := errors.New("exit status 1")
	runner := &system.MockRunner{
		RunFunc: func(name string, args ...string) error { return failure },
	}

	err := NewController(runner).DisableNow(context.Background(), "bluetooth")
	require.ErrorIs(t, err, failure)
	assert.ErrorContains(t, err, "disable bluetooth")
}
