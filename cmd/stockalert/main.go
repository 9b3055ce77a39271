package main

import (
	"errors"
	"fmt"
	"os"

	"stockalert/internal/cli"
	"stockalert/internal/config"
	errs "stockalert/internal/errors"
	"stockalert/internal/logging"
)

func main() {
	// The --config flag has to be resolved before cobra parses anything,
	// since the config drives how the command tree is wired.
	configDir := ""
	for i, arg := range os.Args[1:] {
		if arg == "--config" && i+2 < len(os.Args) {
			configDir = os.Args[i+2]
		}
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger()

	rootCmd, err := cli.NewRootCmd(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		// Distinct exit code so schedulers can reschedule an unfinished
		// universe bootstrap without parsing output.
		if errors.Is(err, errs.ErrBootstrapRetry) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
