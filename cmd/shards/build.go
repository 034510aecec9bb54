package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shards/internal/pipeline"
	"shards/internal/store"
	"shards/util"
)

func newBuildCmd(a *app) *cobra.Command {
	var noRecord bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Assign every imported file to a bundle and write the bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []pipeline.Option{}
			if !noRecord {
				st, err := store.Open(a.cfg.DBPath)
				if err != nil {
					return err
				}
				defer st.Close()
				opts = append(opts, pipeline.WithStore(st))
			}

			res, err := pipeline.New(a.cfg, opts...).Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.cfg.DryRun {
				fmt.Fprint(out, res.Plan.Describe(a.cfg.Root))
				return nil
			}
			for _, o := range res.Outputs {
				fmt.Fprintln(out, util.RelOrAbs(a.cfg.Root, o))
			}
			return nil
		},
	}
	cmd.Flags().Bool("dry-run", false, "Print the bundle plan without writing files")
	cmd.Flags().BoolVar(&noRecord, "no-record", false, "Do not record the build in the manifest database")
	_ = a.v.BindPFlag("dry_run", cmd.Flags().Lookup("dry-run"))
	return cmd
}
