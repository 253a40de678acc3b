// Command professor is the Ycotes Professor tutoring assistant.
package main

import (
	"fmt"
	"os"

	"github.com/ycotes/professor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
