package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/SaidislomSaidazimovv/Docbrand/internal"
	pkgconfig "github.com/SaidislomSaidazimovv/Docbrand/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := pkgconfig.Load(configPath, cfg); err != nil {
				return fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if cmd.Bool("mcp") {
		return internal.RunMCP(cfg)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithLogger(logger),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "docbrand",
		Usage:  "Requirements-traceability document store with a consistency-checked block↔requirement link index",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "mcp",
				Usage: "Serve MCP tools over stdio instead of the HTTP API",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
