package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/petasbytes/go-director/internal/config"
	"github.com/petasbytes/go-director/internal/logging"
	"github.com/petasbytes/go-director/internal/telemetry"
)

const version = "0.3.0"

func main() {
	var flush func()
	cmd := &cli.Command{
		Name:    "director",
		Usage:   "an LLM that cuts cameras for a live service",
		Version: version,
		Flags:   config.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			var err error
			flush, err = logging.Init(c.Bool("verbose") || c.Bool("debug"))
			if err != nil {
				return ctx, fmt.Errorf("init logging: %w", err)
			}
			telemetry.SetObserve(c.Bool("observe"))
			telemetry.SetArtifactsDir(c.String("artifacts"))
			return ctx, nil
		},
		Action: runChat,
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "talk to the director on stdin",
				Action: runChat,
			},
			{
				Name:      "captions",
				Usage:     "feed an SRT caption file to the director",
				ArgsUsage: "FILE",
				Action:    runCaptions,
			},
			{
				Name:   "tools",
				Usage:  "print the tool descriptors sent to the model",
				Action: runTools,
			},
		},
	}

	// Graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.Run(ctx, os.Args)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	if flush != nil {
		flush()
	}
	if err != nil {
		os.Exit(1)
	}
}

// load builds and validates the configuration for a subcommand.
func load(c *cli.Command) (*config.Config, error) {
	cfg := config.FromCommand(c)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Log(zap.L())
	return cfg, nil
}
