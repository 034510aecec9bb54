package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shards/internal/pipeline"
	"shards/internal/scan"
	"shards/util"
)

func newOrphansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orphans",
		Short: "List project files that no bundle includes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, plan, err := pipeline.New(a.cfg).Plan(cmd.Context())
			if err != nil {
				return err
			}
			orphans, err := scan.Orphans(a.cfg.Root, plan, a.cfg.Include, []string{a.cfg.Dest})
			if err != nil {
				return err
			}
			for _, o := range orphans {
				fmt.Fprintln(cmd.OutOrStdout(), util.RelOrAbs(a.cfg.Root, o))
			}
			return nil
		},
	}
}
