package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	var envFiles []string

	cmd := &cobra.Command{
		Use:           "org-hierarchy",
		Short:         "Flatten an AWS Organizations hierarchy into a parent/child relation",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(envFiles)
		},
	}
	cmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env", ".env.local"}, "Env files loaded before reading the environment")

	cmd.AddCommand(newExportCmd(a))
	cmd.AddCommand(newRootsCmd(a))
	return cmd
}

func Execute() {
	a := newApp(os.Stdout, os.Stderr)
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
