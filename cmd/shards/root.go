package main

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shards/internal/config"
	"shards/internal/errutil"
	"shards/internal/logger"
	"shards/internal/store"
)

// app carries the state shared by every subcommand.
type app struct {
	v         *viper.Viper
	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	cmd := &cobra.Command{
		Use:   "shards",
		Short: "Split an HTML-imports application into lazily loaded bundles",
		Long: `shards follows the import links of an entry document and writes one bundle
for the entry plus one per lazily imported document. Files shared by several
bundles are hoisted to the closest bundle they all load through.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logCloser != nil {
				a.logCloser.Close()
			}
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errutil.WithExitCode(err, errutil.ExitUsage)
	})

	flags := cmd.PersistentFlags()
	flags.String("root", "", "Project root; absolute hrefs resolve against it (default: git root)")
	flags.StringP("entry", "e", "", "Entry document, relative to the project root")
	flags.StringP("dest", "o", config.DefaultDest, "Output directory for bundles")
	flags.Int("concurrency", config.DefaultConcurrency, "Maximum concurrent file reads")
	flags.Int("cache-size", config.DefaultCacheSize, "Import cache capacity, in files")
	flags.String("db-path", store.GetDatabasePath(), "Build manifest database")
	flags.Bool("debug", false, "Log the bundle plan and debug output")
	flags.String("log-level", config.DefaultLogLevel, "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
	flags.StringSlice("include", nil, "Globs of files checked by orphans")

	for key, flag := range map[string]string{
		"root":        "root",
		"entry":       "entry",
		"dest":        "dest",
		"concurrency": "concurrency",
		"cache_size":  "cache-size",
		"db_path":     "db-path",
		"debug":       "debug",
		"log_level":   "log-level",
		"log_file":    "log-file",
		"include":     "include",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(flag))
	}

	cmd.AddCommand(
		newBuildCmd(a),
		newTreeCmd(a),
		newOrphansCmd(a),
		newServeCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func (a *app) init() error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	closer, err := logger.Setup(level, cfg.LogFile)
	if err != nil {
		return errutil.WithExitCode(err, errutil.ExitUsage)
	}
	a.cfg, a.logCloser = cfg, closer
	log.Debug("Configuration loaded", "root", cfg.Root, "entry", cfg.Entry, "dest", cfg.Dest)
	return nil
}
