package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/url-verifier/internal/adapters/frontend"
	"github.com/mikey/url-verifier/internal/di"
	"go.uber.org/zap"
)

const (
	exitSafe    = 0
	exitNotSafe = 1
	exitError   = 2
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(exitError)
	}

	code := exitError
	err = container.Invoke(func(logger *zap.Logger, cli *frontend.CliFrontend) error {
		defer logger.Sync()

		urls, err := collectURLs(flags, logger)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return fmt.Errorf("no URLs to verify")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		summary := cli.ProcessAll(ctx, urls)
		logger.Info("Verification finished",
			zap.Int("checked", summary.Checked),
			zap.Int("safe", summary.Safe),
			zap.Int("unsafe", summary.Unsafe),
			zap.Int("unknown", summary.Unknown),
			zap.Int("rejected", summary.Rejected))

		code = exitNotSafe
		if summary.AllSafe() {
			code = exitSafe
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitError)
	}
	os.Exit(code)
}

// collectURLs returns the URLs given as arguments, or reads them from the input file or stdin
func collectURLs(flags *di.CLIFlags, logger *zap.Logger) ([]string, error) {
	if len(flags.URLs) > 0 {
		return flags.URLs, nil
	}

	var reader io.Reader
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		reader = file
		logger.Info("Reading URLs from file", zap.String("file", flags.InputFile))
	} else {
		reader = os.Stdin
		logger.Info("Reading URLs from stdin")
	}

	return frontend.ReadURLs(reader)
}
