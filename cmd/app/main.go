package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/othala/internal"
	"github.com/starford/othala/internal/hierarchy"
	pkgconfig "github.com/starford/othala/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, cfg); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.RunMCP(cfg)
}

func ls(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.WithVault(cfg, func(hier *hierarchy.Service) error {
		summaries, err := hier.Summaries(ctx)
		if err != nil {
			return err
		}
		for _, s := range summaries {
			fmt.Printf("%s\t%d\n", s.Path, s.Children)
		}
		return nil
	})
}

func mv(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: othala mv <container> <new-parent>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.WithVault(cfg, func(hier *hierarchy.Service) error {
		res, err := hier.Move(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
		if err != nil {
			return err
		}
		if !res.Changed {
			fmt.Printf("%s is already under %s\n", res.Node, cmd.Args().Get(1))
			return nil
		}
		fmt.Printf("moved %s to %s\n", res.Node, res.To)
		return nil
	})
}

func promote(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: othala promote <container>")
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.WithVault(cfg, func(hier *hierarchy.Service) error {
		res, err := hier.Promote(ctx, cmd.Args().Get(0))
		if err != nil {
			return err
		}
		if !res.Changed {
			fmt.Printf("%s is already at the root\n", res.Node)
			return nil
		}
		fmt.Printf("promoted %s to %s\n", res.Node, res.To)
		return nil
	})
}

func main() {
	cmd := &cli.Command{
		Name:   "othala",
		Usage:  "Local-first Markdown vault with managed sections, container hierarchy, and full-text search",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server and vault watcher",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Start the MCP server on stdio",
				Action: mcp,
			},
			{
				Name:   "ls",
				Usage:  "List containers with their child counts",
				Action: ls,
			},
			{
				Name:      "mv",
				Usage:     "Move a container under a new parent",
				ArgsUsage: "<container> <new-parent>",
				Action:    mv,
			},
			{
				Name:      "promote",
				Usage:     "Promote a container to the vault root",
				ArgsUsage: "<container>",
				Action:    promote,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
