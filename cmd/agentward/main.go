// agentward gates what an autonomous agent may do, snapshots its
// writes for bounded rollback, and degrades deterministically when the
// inference or memory backend fails.
package main

import "github.com/agentward/agentward/internal/cli"

func main() {
	cli.Execute()
}
