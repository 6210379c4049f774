// Command celsus runs the book catalog: the REST API, the lending message consumer and the
// database migrations.
package main

import (
	"fmt"
	"os"

	"github.com/celsus/core/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
