// Command devagentd runs the spec, build, and QA orchestrators against a
// project checkout and spec directory on the local filesystem.
package main

import (
	"fmt"
	"os"

	"github.com/devagent/orchestrator/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "devagentd:", err)
		os.Exit(1)
	}
}
