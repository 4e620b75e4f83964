// Command dnp3master runs a DNP3 master station daemon driven by a static
// channel/association configuration file.
package main

import (
	"fmt"
	"os"

	"github.com/go-dnp3/dnp3master/cmd/dnp3master/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version = version
	commands.Commit = commit
	commands.Date = date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
