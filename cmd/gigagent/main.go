// Command gigagent answers gig-worker questions from the command line by
// running the two-stage recommendation pipeline in process.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
