package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinktwice-ai/thinktwice/internal/compare"
	"github.com/thinktwice-ai/thinktwice/internal/engine"
)

var (
	compareConfigPath   string
	compareAPIKey       string
	compareArtifactsDir string
)

func newCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <task>",
		Short: "Run a task with and without verification, side by side",
		Long: `Run the same task twice: once as a plain completion and once through the
speculative engine, then print a summary table. With --artifacts-dir the
full outputs and the engine's conversation log are written as markdown.`,
		Args: cobra.ExactArgs(1),
		RunE: compareCommandE,
	}

	cmd.Flags().StringVarP(&compareConfigPath, "config", "c", "", "Path to a .thinktwice.yaml config file")
	cmd.Flags().StringVar(&compareAPIKey, "api-key", "", "Provider API key (or set "+APIKeyEnvVar+")")
	cmd.Flags().StringVar(&compareArtifactsDir, "artifacts-dir", "", "Directory to write markdown artifacts")

	return cmd
}

func compareCommandE(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, err := loadConfig(compareConfigPath)
	if err != nil {
		return err
	}
	source, err := buildSource(cfg, compareAPIKey)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Comparing modes for: %s\n\n", task)

	report := compare.Run(cmd.Context(), source, cfg.EngineConfig(), task, nil)
	printCompareTable(out, report)

	if compareArtifactsDir != "" {
		dir, err := compare.WriteArtifacts(compareArtifactsDir, report, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nartifacts: %s\n", dir)
	}

	if report.ThinkTwice.Err != nil {
		return report.ThinkTwice.Err
	}
	return report.Raw.Err
}

func printCompareTable(out io.Writer, report *compare.Report) {
	const (
		colMode     = 12
		colStatus   = 10
		colDuration = 10
		colAnswer   = 48
	)
	totalWidth := colMode + colStatus + colDuration + colAnswer + 6

	fmt.Fprintf(out, "%s\n", strings.Repeat("─", totalWidth))
	fmt.Fprintf(out, "%s  %s  %s  %s\n",
		padRight("Mode", colMode),
		padRight("Status", colStatus),
		padRight("Duration", colDuration),
		"Answer")
	fmt.Fprintf(out, "%s\n", strings.Repeat("─", totalWidth))

	for _, r := range []compare.Result{report.Raw, report.ThinkTwice} {
		status := "ok"
		if r.Err != nil {
			status = "error"
			var abort *engine.AbortError
			if errors.As(r.Err, &abort) {
				status = "aborted"
			}
		}
		mode := r.Mode
		if r.Mode == compare.ModeThinkTwice {
			mode = fmt.Sprintf("%s (%d⟲)", r.Mode, r.Takeovers)
		}
		fmt.Fprintf(out, "%s  %s  %s  %s\n",
			padRight(mode, colMode),
			padRight(status, colStatus),
			padRight(fmt.Sprintf("%dms", r.DurationMs), colDuration),
			truncateAnswer(r.Answer, colAnswer))
	}
	fmt.Fprintf(out, "%s\n", strings.Repeat("─", totalWidth))
}

func truncateAnswer(s string, maxWidth int) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	runes := []rune(s)
	if len(runes) <= maxWidth {
		return s
	}
	return string(runes[:maxWidth-1]) + "…"
}
