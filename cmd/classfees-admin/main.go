package main

import (
	"context"
	"errors"
	"os"

	"classfees/internal/cli"
	"classfees/internal/docstore"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	cmd := &commandLine{
		out:    os.Stdout,
		logger: logger,
		openStore: func(ctx context.Context) (docstore.Store, func() error, error) {
			cfg := cli.LoadAndValidateConfig(logger)
			res := cli.InitStore(ctx, logger, cfg)
			return res.Store, res.Close, nil
		},
	}
	if err := cmd.run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errHelp) {
			logger.Error("Command failed", "error", err)
		}
		os.Exit(1)
	}
}
