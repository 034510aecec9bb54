package main

import (
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"shards/internal/server"
	"shards/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve builds over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := store.Open(a.cfg.DBPath)
			if err != nil {
				return err
			}
			defer st.Close()

			log.Info("Serving MCP on stdio", "root", a.cfg.Root, "db", a.cfg.DBPath)
			return server.New(a.cfg, st, version).Run(cmd.Context())
		},
	}
}
