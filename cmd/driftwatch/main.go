// Command driftwatch scores cloud metrics and log batches for anomalies and
// dispatches alerts.
package main

import (
	"os"

	"github.com/driftwatch/driftwatch/cmd/driftwatch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
