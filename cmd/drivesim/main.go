// Command drivesim runs the elevator driver against a simulated drive.
package main

import (
	"fmt"
	"os"

	diskdrv "github.com/ehrlich-b/go-diskdrv"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(diskdrv.ExitCode(err))
	}
}
