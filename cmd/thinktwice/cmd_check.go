package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thinktwice-ai/thinktwice/internal/config"
	"github.com/thinktwice-ai/thinktwice/internal/validation"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [config-file]",
		Short: "Validate a configuration file against its schema",
		Long: `Validate a .thinktwice.yaml configuration file against the bundled JSON
schema. Without an argument the current directory's config is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: checkCommandE,
	}
	return cmd
}

func checkCommandE(cmd *cobra.Command, args []string) error {
	path := config.ConfigFileName
	if len(args) > 0 {
		path = args[0]
	}

	errs, err := validation.ValidateConfigFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(errs) == 0 {
		fmt.Fprintf(out, "✓ %s is valid\n", path)
		return nil
	}

	fmt.Fprintf(out, "✗ %s has %d problem(s):\n", path, len(errs))
	for _, e := range errs {
		fmt.Fprintf(out, "  - %s\n", e)
	}
	return fmt.Errorf("%s failed validation", path)
}
