package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pgcudahy/sos/internal/engine"
	"github.com/pgcudahy/sos/internal/workflow"
)

func newParseCmd() *cobra.Command {
	var (
		workflowName string
		debug        bool
	)

	cmd := &cobra.Command{
		Use:   "parse <script>",
		Short: "Materialise a workflow without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := readScript(args[0])
			if err != nil {
				return err
			}

			m, evaluator, err := engine.Materialize(content, args[0], engine.Options{Workflow: workflowName})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "workflow %q\n", m.Workflow.Name)
			fmt.Fprintf(out, "  steps: %d, auxiliary: %d\n", len(m.Workflow.Sections), len(m.Workflow.AuxiliarySections))
			for i := range m.Workflow.Sections {
				fmt.Fprintf(out, "  [%d] %s_%d\n", i, m.Workflow.Name, m.Workflow.Indices[i])
			}
			if len(m.Bindings) > 0 {
				fmt.Fprintln(out, "  parameters:")
				for name, v := range m.Bindings {
					fmt.Fprintf(out, "    %s = %s\n", name, v.String())
				}
			}

			if !debug {
				return nil
			}

			// Declaring the dynamic per-parameter flag set is exercised
			// here rather than on `sos run`: cobra parses a command's
			// flags before its RunE runs, so a flag set that can only be
			// known after parsing the script can't gate the same
			// command's own argv. Rendering it is still useful as a
			// preview of what a generated `--name value` CLI would look
			// like for this workflow.
			binder := workflow.NewBinder(evaluator)
			preview := &cobra.Command{Use: "sos run"}
			if _, err := binder.BindFlags(m.Workflow.ParametersSection, m.Bindings, preview); err != nil {
				return err
			}
			if usage := preview.Flags().FlagUsages(); usage != "" {
				fmt.Fprintln(out, "  generated flags:")
				fmt.Fprint(out, usage)
			}

			graph, err := engine.BuildGraph(m.Workflow, evaluator, m.Bindings)
			if err != nil {
				return err
			}
			graph.Build()
			fmt.Fprintln(out, "  graph:")
			graph.Dump(out)
			return nil
		},
	}

	cmd.Flags().StringVar(&workflowName, "workflow", "", "workflow name to materialise (required when the script defines more than one)")
	cmd.Flags().BoolVar(&debug, "debug", false, "also build and dump the dependency graph")
	return cmd
}
