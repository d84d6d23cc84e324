package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/docqa/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	t.Run("commands are registered", func(t *testing.T) {
		for _, name := range []string{"index", "query", "serve", "sessions", "init-config"} {
			findCommand(t, app, name)
		}
	})

	t.Run("index has force flag", func(t *testing.T) {
		cmd := findCommand(t, app, "index")
		var force *cli.BoolFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.BoolFlag); ok && f.Name == "force" {
				force = f
				break
			}
		}
		require.NotNil(t, force)
		assert.False(t, force.Value)
		assert.Equal(t, []string{"f"}, force.Aliases)
	})

	t.Run("config reads DOCQA_CONFIG", func(t *testing.T) {
		var cfgFlag *cli.StringFlag
		for _, flag := range app.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "config" {
				cfgFlag = f
				break
			}
		}
		require.NotNil(t, cfgFlag)
		assert.Equal(t, []string{"DOCQA_CONFIG"}, cfgFlag.EnvVars)
	})

	t.Run("sessions has cleanup", func(t *testing.T) {
		cmd := findCommand(t, app, "sessions")
		require.Len(t, cmd.Subcommands, 1)
		assert.Equal(t, "cleanup", cmd.Subcommands[0].Name)
	})
}

func TestCommandValidation(t *testing.T) {
	t.Run("query requires a question", func(t *testing.T) {
		err := newApp().Run([]string{"docqa", "query"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "question is required")
	})

	t.Run("init-config requires out", func(t *testing.T) {
		err := newApp().Run([]string{"docqa", "init-config"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "out")
	})

	t.Run("bad config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docqa.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: sqlite\n"), 0644))
		err := newApp().Run([]string{"docqa", "--config", path, "index", "docs"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to load configuration")
	})
}

func TestInitConfigAndIndex(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "docqa.yaml")

	require.NoError(t, newApp().Run([]string{"docqa", "init-config", "--out", cfgPath}))
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.BackendBadger, cfg.Storage.Backend)

	err = newApp().Run([]string{"docqa", "init-config", "--out", cfgPath})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	t.Run("index with no paths fails", func(t *testing.T) {
		var out bytes.Buffer
		app := newApp()
		app.Writer = &out
		err := app.Run([]string{"docqa", "--config", cfgPath, "index"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one path is required")
	})
}

func TestSetupLogger(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"info", slog.LevelInfo},
			{"warn", slog.LevelWarn},
			{"error", slog.LevelError},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: tc.input,
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				require.NoError(t, app.Run([]string{"test", "--log-level", tc.input}))
				assert.True(t, slog.Default().Enabled(t.Context(), tc.expected))
			})
		}
	})

	t.Run("case insensitive log levels", func(t *testing.T) {
		for _, tc := range []string{"DEBUG", "Info", "WaRn", "ERROR"} {
			t.Run(tc, func(t *testing.T) {
				app := &cli.App{
					Name: "test",
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:  "log-level",
							Value: "info",
						},
					},
					Before: setupLogger,
					Action: func(c *cli.Context) error {
						return nil
					},
				}

				require.NoError(t, app.Run([]string{"test", "--log-level", tc}))
			})
		}
	})

	t.Run("invalid log level returns error", func(t *testing.T) {
		err := newApp().Run([]string{"docqa", "--log-level", "invalid", "query", "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}
