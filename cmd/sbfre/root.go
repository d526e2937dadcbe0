package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sbfre/internal/config"
	"sbfre/internal/logging"
)

// globals carries the persistent flags and what they resolve to.
type globals struct {
	configPath string
	logLevel   string
	pretty     bool

	cfg *config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:           "sbfre",
		Short:         "sbfre - Solana BPF program reverse engineering",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "YAML file overlaid on the built-in tables")
	flags.StringVar(&g.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.BoolVar(&g.pretty, "pretty", true, "human-readable log output")

	rootCmd.AddCommand(newSectionsCmd(g))
	rootCmd.AddCommand(newKeysCmd(g))
	rootCmd.AddCommand(newAnalyzeCmd(g))
	rootCmd.AddCommand(newGraphCmd(g))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func (g *globals) setup(cmd *cobra.Command) error {
	lc := logging.DefaultConfig()
	lc.Level = g.logLevel
	lc.Pretty = g.pretty
	lc.Output = cmd.ErrOrStderr()
	g.log = logging.NewWithComponent(lc, cmd.Name())

	cfg, err := config.Load(g.configPath)
	if err != nil {
		return err
	}
	g.cfg = cfg
	if g.configPath != "" {
		g.log.Debug().Str("path", g.configPath).Msg("loaded config")
	}
	return nil
}
