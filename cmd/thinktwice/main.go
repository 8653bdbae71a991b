package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/thinktwice-ai/thinktwice/internal/engine"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Run produced a final answer
	ExitAborted = 1 // Takeover budget exhausted before an answer
	ExitError   = 2 // Configuration or runtime error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		// Check error type to determine exit code
		var abortErr *engine.AbortError
		if errors.As(err, &abortErr) {
			os.Exit(ExitAborted)
		}

		// All other errors are configuration/runtime errors
		os.Exit(ExitError)
	}
}
