package main

import (
	"github.com/spf13/cobra"
)

type rootLine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newRootsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roots",
		Short: "Print the organization roots, one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, _ := a.runContext(cmd.Context())

			dir, err := a.newDirectory(ctx, a.cfg.AWS)
			if err != nil {
				return withCode(exitDirectory, err)
			}
			roots, err := dir.Roots(ctx)
			if err != nil {
				return withCode(exitDirectory, err)
			}
			for _, r := range roots {
				if err := writeJSONLine(a.stdout, rootLine{ID: r.ID, Name: r.Name}); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
