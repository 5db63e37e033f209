package main

import (
	"github.com/realies/rpi-compute-node/internal/interfaces/cli"
)

func main() {
	// No signal handling on purpose: an interrupted run is recovered by the
	// idempotency of the steps on the next invocation, not by in-run
	// cleanup.
	cli.Execute()
}
