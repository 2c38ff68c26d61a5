package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pgcudahy/sos/internal/engine"
	"github.com/pgcudahy/sos/internal/runlock"
	"github.com/pgcudahy/sos/internal/signature"
)

func newRunCmd() *cobra.Command {
	var (
		workflowName string
		params       []string
		nprocs       int
	)

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Materialise a workflow and run it to completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readScript(args[0])
			if err != nil {
				return err
			}

			if err := os.MkdirAll(appConfig.WorkDir, 0o755); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			lock := runlock.New(appConfig.WorkDir, nil)
			if err := lock.TryLock(); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer lock.Unlock()

			controller := signature.NewController(
				signature.WithOutput(cmd.OutOrStdout()),
				signature.WithQuiet(quiet),
				signature.WithTargetCacheSize(appConfig.TargetCacheSize),
			)

			if nprocs <= 0 {
				nprocs = appConfig.NProcs
			}

			ctx := cmd.Context()
			err = engine.Run(ctx, content, args[0], engine.Options{
				Workflow:   workflowName,
				Params:     params,
				NProcs:     nprocs,
				Controller: controller,
			})
			if err != nil {
				appLogger.Error("run failed", "workflow", workflowName, "error", err)
				return err
			}
			appLogger.Info("run completed", "workflow", workflowName)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowName, "workflow", "", "workflow name to run (required when the script defines more than one)")
	cmd.Flags().StringArrayVar(&params, "param", nil, "override a workflow parameter as name=value (repeatable)")
	cmd.Flags().IntVar(&nprocs, "nprocs", 0, "maximum concurrent steps (defaults to the config value)")
	return cmd
}
