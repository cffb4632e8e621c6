// Command deminify renames minified JavaScript identifiers using an LLM
// oracle, one function at a time, bottom-up through the call graph.
//
// Usage:
//
//	deminify run bundle.min.js -o bundle.out.js
//	deminify run bundle.min.js --model sonnet --yes
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "deminify",
		Short:         "Rename minified JavaScript identifiers with an LLM oracle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}
