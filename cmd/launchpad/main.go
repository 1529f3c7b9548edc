package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	showHistory := flag.Bool("history", false, "Print recent launch history and exit")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("launchpad %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	// Load configuration
	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	// Setup logger
	logger := SetupLogger(cfg)

	// Handle history flag
	if *showHistory {
		return runHistory(cfg, logger, os.Stdout)
	}

	logger.Info("starting launchpad",
		"version", Version,
		"config", *configPath,
	)

	console := NewConsole(os.Stdout, os.Stdin, cfg.Console.Pause)

	launcher, err := NewLauncher(cfg, console, logger)
	if err != nil {
		var lErr *LauncherError
		if errors.As(err, &lErr) {
			logger.Error("failed to create launcher",
				"error", lErr.Err,
				"operation", lErr.Op,
			)
			console.Errorf("%v", lErr.Err)
			console.WaitForAck()
			return lErr.ExitCode
		}
		logger.Error("failed to create launcher", "error", err)
		return ExitConfigError
	}
	defer launcher.Close()

	return launcher.Run(context.Background())
}
