package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/thinktwice-ai/thinktwice/internal/config"
	"github.com/thinktwice-ai/thinktwice/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a .thinktwice.yaml with a guided wizard",
		Long: `Run a guided wizard that collects provider settings and writes a
.thinktwice.yaml config file. The API key is asked for but never stored;
pass it at run time with --api-key or ` + APIKeyEnvVar + `.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, force bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	target := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(target); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	spec, err := wizard.RunConfigWizard(cmd.InOrStdin(), cmd.OutOrStdout(), config.New())
	if err != nil {
		return err
	}

	content, err := wizard.GenerateConfigYAML(spec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(target, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "wrote %s\n", target)
	fmt.Fprintf(out, "run a task with:\n  %s run \"your task\" --api-key <key>\n", cmd.Root().Name())
	return nil
}
