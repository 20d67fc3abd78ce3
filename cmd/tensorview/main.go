// Package main provides the tensorview CLI: an explorer for the structure
// of SafeTensors and GGUF checkpoint files.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/tensorview/tensorview/internal/config"
	"github.com/tensorview/tensorview/internal/discover"
	"github.com/tensorview/tensorview/internal/index"
	"github.com/tensorview/tensorview/internal/loader"
	"github.com/tensorview/tensorview/internal/render"
	"github.com/tensorview/tensorview/internal/server"
	"github.com/tensorview/tensorview/internal/tree"
)

const version = "v0.1.0"

func main() {
	cmd := &cli.Command{
		Name:    "tensorview",
		Usage:   "Explore the structure of SafeTensors and GGUF checkpoint files",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("TENSORVIEW_VERBOSE"),
			},
		},
		Commands: []*cli.Command{
			treeCommand(),
			summaryCommand(),
			serveCommand(),
			indexCommand(),
			searchCommand(),
		},
		DefaultCommand: "tree",
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelInfo
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadSnapshot expands the path arguments and decodes every matched file.
func loadSnapshot(ctx context.Context, cmd *cli.Command, logger *slog.Logger) (*loader.Snapshot, []string, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return nil, nil, fmt.Errorf("no paths given")
	}

	files, err := discover.Collect(args, cmd.Bool("recursive"))
	if err != nil {
		return nil, nil, err
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no SafeTensors or GGUF files found in the specified paths")
	}

	snap, err := loader.Load(ctx, files, logger)
	if err != nil {
		return nil, nil, err
	}
	return snap, files, nil
}

func recursiveFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "recursive",
		Aliases: []string{"r"},
		Usage:   "Recursively search directories",
	}
}

func treeCommand() *cli.Command {
	return &cli.Command{
		Name:      "tree",
		Usage:     "Print the tensor hierarchy of the given files",
		ArgsUsage: "PATHS...",
		Flags: []cli.Flag{
			recursiveFlag(),
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"q"},
				Usage:   "Only show tensors and metadata whose name contains this text",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Expand every group, including deeply nested ones",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Emit the tree as JSON instead of text",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd)
			snap, _, err := loadSnapshot(ctx, cmd, logger)
			if err != nil {
				return err
			}

			tensors, metadata := tree.Filter(snap.Tensors, snap.Metadata, cmd.String("filter"))
			roots := tree.BuildMixed(tensors, metadata)

			if cmd.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(roots)
			}

			render.Tree(os.Stdout, roots, render.Options{All: cmd.Bool("all")})
			return nil
		},
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:      "summary",
		Usage:     "Print batch totals for the given files",
		ArgsUsage: "PATHS...",
		Flags:     []cli.Flag{recursiveFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd)
			snap, _, err := loadSnapshot(ctx, cmd, logger)
			if err != nil {
				return err
			}
			render.Summary(os.Stdout, snap)
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:      "serve",
		Usage:     "Serve the explorer over HTTP",
		ArgsUsage: "PATHS...",
		Flags: []cli.Flag{
			recursiveFlag(),
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "Listen address (overrides config)",
				Sources: cli.EnvVars("TENSORVIEW_ADDR"),
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Reload when an input file changes on disk",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				Sources: cli.EnvVars("TENSORVIEW_CONFIG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.Default()
			if path := cmd.String("config"); path != "" {
				if err := config.Load(path, cfg); err != nil {
					return err
				}
			}

			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: cfg.App.LogLevel,
			}))
			slog.SetDefault(logger)

			snap, files, err := loadSnapshot(ctx, cmd, logger)
			if err != nil {
				return err
			}

			addr := cfg.Server.Address()
			if a := cmd.String("addr"); a != "" {
				addr = a
			}

			srv := server.New(snap, files, logger)
			return srv.Run(ctx, addr, cmd.Bool("watch"))
		},
	}
}

func dbFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db",
		Usage:   "Path to the inventory database",
		Value:   "tensorview.db",
		Sources: cli.EnvVars("TENSORVIEW_DB"),
	}
}

func indexCommand() *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Scan checkpoint files into the inventory database",
		ArgsUsage: "PATHS...",
		Flags:     []cli.Flag{recursiveFlag(), dbFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := newLogger(cmd)

			files, err := discover.Collect(cmd.Args().Slice(), cmd.Bool("recursive"))
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no SafeTensors or GGUF files found in the specified paths")
			}

			db, err := index.Open(cmd.String("db"))
			if err != nil {
				return err
			}
			defer db.Close()

			indexed := 0
			for _, path := range files {
				if err := ctx.Err(); err != nil {
					return err
				}
				tensors, _, report := loader.DecodeFile(path)
				if report.Err != nil {
					logger.Warn("skipping file", slog.String("path", path),
						slog.String("error", report.Err.Error()))
					continue
				}
				if err := db.SyncFile(path, report.Format, tensors); err != nil {
					return err
				}
				indexed++
				logger.Info("indexed", slog.String("path", path),
					slog.Int("tensors", len(tensors)))
			}

			fmt.Printf("Indexed %d of %d file(s) into %s\n", indexed, len(files), cmd.String("db"))
			return nil
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search indexed tensor names",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results",
				Value: 100,
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			query := cmd.Args().First()
			if query == "" {
				return fmt.Errorf("no query given")
			}

			db, err := index.Open(cmd.String("db"))
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.SearchTensors(query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Printf("%s\t%s\t%s\t%s\n", row.Name, row.DType, row.Shape, row.FilePath)
			}
			if len(rows) == 0 {
				fmt.Println("no matches")
			}
			return nil
		},
	}
}
