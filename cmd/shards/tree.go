package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"shards/internal/pipeline"
)

func newTreeCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the import tree of the entry document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := pipeline.New(a.cfg).Tree(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprintln(out, tree.Render(tree.Root(), a.cfg.Root))
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(tree.Flatten(tree.Root()))
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the flattened {name, parent, size} list instead")
	return cmd
}
