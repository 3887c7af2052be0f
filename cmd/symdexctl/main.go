// Command symdexctl is the symdex command-line client.
package main

import (
	"os"

	"github.com/kailas-cloud/symdex/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
