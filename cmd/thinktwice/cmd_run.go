package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thinktwice-ai/thinktwice/internal/engine"
	"github.com/thinktwice-ai/thinktwice/internal/transcript"
)

var (
	runConfigPath    string
	runAPIKey        string
	runTranscriptDir string
	runVerbose       bool
	runNoColor       bool
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Run a single task with speculative verification",
		Long: `Run a single task through the speculative engine.

The task streams from the generator model while the auditor model verifies
each reasoning step concurrently. Rejected steps trigger a takeover: the
output is rewound to the faulty step and generation restarts with the
auditor's correction.`,
		Args: cobra.ExactArgs(1),
		RunE: runCommandE,
	}

	cmd.Flags().StringVarP(&runConfigPath, "config", "c", "", "Path to a .thinktwice.yaml config file")
	cmd.Flags().StringVar(&runAPIKey, "api-key", "", "Provider API key (or set "+APIKeyEnvVar+")")
	cmd.Flags().StringVar(&runTranscriptDir, "transcript-dir", "", "Directory to save the run transcript JSON")
	cmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Show per-step audit progress")
	cmd.Flags().BoolVar(&runNoColor, "no-color", false, "Disable ANSI colors")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, err := loadConfig(runConfigPath)
	if err != nil {
		return err
	}
	source, err := buildSource(cfg, runAPIKey)
	if err != nil {
		return err
	}

	eng := engine.New(source, cfg.EngineConfig())
	rep := newReporter(cmd.OutOrStdout(), runVerbose, !runNoColor)
	eng.OnProgress(rep.Listen)

	start := time.Now()
	answer, runErr := eng.Run(cmd.Context(), task)
	end := time.Now()

	if runTranscriptDir != "" {
		status := transcript.StatusCompleted
		errMsg := ""
		if runErr != nil {
			status = transcript.StatusError
			errMsg = runErr.Error()
			var abort *engine.AbortError
			if errors.As(runErr, &abort) {
				status = transcript.StatusAborted
			}
		}
		tr := transcript.Build(task, answer, status, errMsg, eng.Takeovers(), eng.History(), eng.TakeoverLog(), start, end)
		path, werr := transcript.Write(runTranscriptDir, tr)
		if werr != nil {
			return fmt.Errorf("saving transcript: %w", werr)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\ntranscript: %s\n", path)
	}

	return runErr
}
