// The main package for the linksync executable.
package main

import (
	"github.com/mjaros/linksync/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
