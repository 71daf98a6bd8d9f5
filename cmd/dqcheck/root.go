package main

import (
	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. getenv supplies environment overrides.
func newRootCmd(getenv func(string) string) *cobra.Command {
	root := &cobra.Command{
		Use:   "dqcheck",
		Short: "Validate tabular datasets against expectation suites",
		Long: "dqcheck loads a delimited dataset, evaluates an expectation suite against it\n" +
			"and reports the result to the console, a static html site, a SQL result store,\n" +
			"an object store bucket or a chat webhook.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newRunCmd(getenv))
	root.AddCommand(newValidateCmd(getenv))
	root.AddCommand(newServeCmd(getenv))
	return root
}
