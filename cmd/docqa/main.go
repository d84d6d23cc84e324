// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/poiesic/docqa"
	"github.com/poiesic/docqa/config"
	"github.com/poiesic/docqa/core"
	"github.com/poiesic/docqa/qa"
	"github.com/poiesic/docqa/server"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docqa",
		Usage: "Document question answering over a local knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"DOCQA_CONFIG"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Load files and directories into the vector index",
				ArgsUsage: "PATH...",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Clear the index before loading",
					},
				},
			},
			{
				Name:      "query",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    queryCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "top-k",
						Aliases: []string{"k"},
						Usage:   "Number of references to retrieve (defaults to the configured value)",
					},
					&cli.StringFlag{
						Name:  "session",
						Usage: "Session ID to continue",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Preferred answer language",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the full result as JSON",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Run the HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (defaults to the configured value)",
					},
					&cli.BoolFlag{
						Name:  "watch",
						Usage: "Re-index configured paths when files change",
					},
				},
			},
			{
				Name:  "sessions",
				Usage: "Manage persisted conversation sessions",
				Subcommands: []*cli.Command{
					{
						Name:   "cleanup",
						Usage:  "Drop sessions idle longer than the configured timeout",
						Action: sessionsCleanupCommand,
					},
				},
			},
			{
				Name:   "init-config",
				Usage:  "Write the default configuration to a file",
				Action: initConfigCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Destination path",
						Required: true,
					},
				},
			},
		},
	}
}

func loadEngine(c *cli.Context) (*docqa.Engine, *config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	engine, err := docqa.NewEngine(c.Context, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open engine: %w", err)
	}
	return engine, cfg, nil
}

func indexCommand(c *cli.Context) error {
	engine, cfg, err := loadEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	paths := c.Args().Slice()
	if len(paths) == 0 {
		paths = cfg.Indexing.Paths
	}
	if len(paths) == 0 {
		return fmt.Errorf("at least one path is required")
	}

	res := engine.BuildIndex(c.Context, paths, c.Bool("force"))
	fmt.Fprintf(c.App.Writer, "%s: %d chunks stored, %d failed in %s\n",
		res.Message, res.DocumentsProcessed, res.DocumentsFailed, res.ProcessingTime)
	if !res.Success {
		return fmt.Errorf("indexing failed: %s", res.Message)
	}
	return nil
}

func queryCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return fmt.Errorf("question is required")
	}

	engine, cfg, err := loadEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	req := qa.Request{
		Question:  question,
		SessionID: c.String("session"),
		TopK:      c.Int("top-k"),
	}
	if req.TopK == 0 {
		req.TopK = cfg.Retrieval.TopK
	}
	if lang := c.String("language"); lang != "" {
		req.Profile = &core.UserProfile{Language: lang}
	}

	res := engine.Query(c.Context, req)
	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(c.App.Writer, res.Answer)
		for i, src := range res.Sources {
			fmt.Fprintf(c.App.Writer, "[%d] %.3f %v\n", i+1, src.Score, src.Metadata["source"])
		}
		fmt.Fprintf(c.App.Writer, "session: %s\n", res.SessionID)
	}
	if !res.Success {
		return fmt.Errorf("query failed: %s", res.Error)
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, cfg, err := loadEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	logger := slog.Default()
	sessions := engine.Sessions()
	if cfg.Sessions.Persist {
		n, err := sessions.Restore(ctx)
		if err != nil {
			return fmt.Errorf("failed to restore sessions: %w", err)
		}
		logger.Info("sessions restored", "count", n)
	}

	addr := c.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}
	srv, err := server.New(addr, server.Deps{
		Queries:  engine.Queries(),
		Indexer:  engine.Indexer(),
		Sessions: sessions,
		Metrics:  engine.Metrics().Handler(),
	}, logger)
	if err != nil {
		return err
	}

	sweeper, err := engine.NewSweeper()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	if c.Bool("watch") {
		if len(cfg.Indexing.Paths) == 0 {
			return fmt.Errorf("--watch requires indexing.paths in the configuration")
		}
		watcher, err := engine.NewWatcher()
		if err != nil {
			return err
		}
		defer watcher.Release()
		g.Go(func() error {
			return watcher.Run(gctx, cfg.Indexing.Paths...)
		})
	}

	err = g.Wait()
	if cfg.Sessions.Persist {
		if serr := sessions.Snapshot(context.Background()); serr != nil {
			logger.Error("failed to persist sessions", "err", serr)
		}
	}
	return err
}

func sessionsCleanupCommand(c *cli.Context) error {
	engine, cfg, err := loadEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	sessions := engine.Sessions()
	restored, err := sessions.Restore(c.Context)
	if err != nil {
		return fmt.Errorf("failed to restore sessions: %w", err)
	}
	removed := sessions.CleanupInactiveSessions(cfg.Sessions.Timeout)
	if err := sessions.Snapshot(c.Context); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "%d sessions checked, %d removed\n", restored, removed)
	return nil
}

func initConfigCommand(c *cli.Context) error {
	out := c.String("out")
	if _, err := os.Stat(out); err == nil {
		return fmt.Errorf("%s already exists", out)
	}
	return config.Save(out, config.Default())
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
