// regctl is the RegDesk maintenance console for cash-register instances.
package main

import (
	"os"

	"github.com/regdesk/regctl/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
