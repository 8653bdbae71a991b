package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thinktwice-ai/thinktwice/internal/engine"
	"github.com/thinktwice-ai/thinktwice/internal/wizard"
)

var (
	chatConfigPath string
	chatAPIKey     string
	chatVerbose    bool
	chatNoColor    bool
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive session with speculative verification",
		Long: `Start an interactive session. Each message runs as its own task with a
fresh reasoning log; type "exit", "quit" or "q" to leave.`,
		Args: cobra.NoArgs,
		RunE: chatCommandE,
	}

	cmd.Flags().StringVarP(&chatConfigPath, "config", "c", "", "Path to a .thinktwice.yaml config file")
	cmd.Flags().StringVar(&chatAPIKey, "api-key", "", "Provider API key (or set "+APIKeyEnvVar+")")
	cmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "Show per-step audit progress")
	cmd.Flags().BoolVar(&chatNoColor, "no-color", false, "Disable ANSI colors")

	return cmd
}

func chatCommandE(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(chatConfigPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	key, err := resolveAPIKey(chatAPIKey)
	if err != nil {
		// No key on the flag or in the environment: collect one (plus
		// provider settings) interactively for this session.
		spec, werr := wizard.RunConfigWizard(cmd.InOrStdin(), out, cfg)
		if werr != nil {
			return werr
		}
		key = spec.APIKey
		cfg.BaseURL = spec.BaseURL
		cfg.GeneratorModel = spec.GeneratorModel
		cfg.AuditorModel = spec.AuditorModel
	}
	source, err := buildSourceWithKey(cfg, key)
	if err != nil {
		return err
	}
	rep := newReporter(out, chatVerbose, !chatNoColor)

	fmt.Fprintf(out, "ThinkTwice interactive session (generator: %s, auditor: %s)\n", cfg.GeneratorModel, cfg.AuditorModel)
	fmt.Fprintln(out, "Legend: dim = streaming reasoning, ✗ = rejected step, ⟲ = takeover")
	fmt.Fprintln(out, `Type "exit" to leave.`)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}
		task := strings.TrimSpace(scanner.Text())
		if task == "" {
			continue
		}
		switch strings.ToLower(task) {
		case "exit", "quit", "q":
			return scanner.Err()
		}

		// Each message gets a fresh engine: tasks are independent and a
		// poisoned log should not leak into the next question.
		eng := engine.New(source, cfg.EngineConfig())
		eng.OnProgress(rep.Listen)

		if _, err := eng.Run(cmd.Context(), task); err != nil {
			var abort *engine.AbortError
			if errors.As(err, &abort) {
				fmt.Fprintf(out, "%v\n", abort)
				continue
			}
			return err
		}
	}
	return scanner.Err()
}
