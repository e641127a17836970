// Command dtsmember runs member data API scenarios and inspects the stores
// they write.
package main

import (
	"fmt"
	"os"

	"github.com/RIFTIO/RIFT.ware-sub004/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
