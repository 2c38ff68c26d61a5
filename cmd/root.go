package main

import (
	"github.com/spf13/cobra"

	"github.com/pgcudahy/sos/internal/config"
	"github.com/pgcudahy/sos/internal/logger"
)

var (
	cfgFile string
	debug   bool
	quiet   bool
	logFmt  string

	appConfig *config.Config
	appLogger logger.Logger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sos",
		Short: "A dynamically scheduled script-of-scripts workflow engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Debug = true
			}
			if logFmt != "" {
				cfg.LogFormat = logFmt
			}
			appConfig = cfg

			var opts []logger.Option
			if cfg.Debug {
				opts = append(opts, logger.WithDebug())
			}
			if cfg.LogFormat != "" {
				opts = append(opts, logger.WithFormat(cfg.LogFormat))
			}
			if quiet {
				opts = append(opts, logger.WithQuiet())
			}
			appLogger = logger.New(opts...)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/sos/config.yaml)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	root.PersistentFlags().StringVar(&logFmt, "log-format", "", "log encoding: console or json")

	root.AddCommand(newRunCmd())
	root.AddCommand(newParseCmd())
	root.AddCommand(newVersionCmd())
	return root
}
