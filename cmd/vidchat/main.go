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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/vidchat/config"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	credentialFlag := &cli.StringFlag{
		Name:  "credential",
		Usage: "Generation provider credential (defaults to the configured generation token)",
	}
	return &cli.App{
		Name:  "vidchat",
		Usage: "Ingest videos and chat with their transcripts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringSliceFlag{
				Name:  "env-file",
				Usage: "Env files to load (default .env)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory (overrides config)",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "submit",
				Usage:     "Ingest one or more videos and wait for them to be indexed",
				ArgsUsage: "<video-url-or-id>...",
				Action:    submitCommand,
			},
			{
				Name:      "status",
				Usage:     "Show the ingestion status of a video",
				ArgsUsage: "<video-url-or-id>",
				Action:    statusCommand,
			},
			{
				Name:   "list",
				Usage:  "List submitted videos",
				Action: listCommand,
			},
			{
				Name:      "transcript",
				Usage:     "Print the transcript of a video",
				ArgsUsage: "<video-url-or-id>",
				Action:    transcriptCommand,
			},
			{
				Name:      "summarize",
				Usage:     "Generate a summary of an indexed video",
				ArgsUsage: "<video-url-or-id>",
				Action:    summarizeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "style",
						Aliases: []string{"s"},
						Usage:   "Summary style (" + styleNames() + ")",
						Value:   "comprehensive",
					},
					&cli.BoolFlag{
						Name:  "latest",
						Usage: "Print the stored summary instead of generating one",
					},
					credentialFlag,
				},
			},
			{
				Name:      "chat",
				Usage:     "Ask questions about an indexed video; reads stdin when no question is given",
				ArgsUsage: "<video-url-or-id> [question...]",
				Action:    chatCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "session",
						Usage: "Continue an existing chat session",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "User id recorded on new sessions",
						Value: "cli",
					},
					credentialFlag,
				},
			},
			{
				Name:      "sessions",
				Usage:     "List the chat sessions of a video",
				ArgsUsage: "<video-url-or-id>",
				Action:    sessionsCommand,
			},
			{
				Name:      "history",
				Usage:     "Print the messages of a chat session",
				ArgsUsage: "<session-id>",
				Action:    historyCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Only print the last N messages",
					},
					&cli.BoolFlag{
						Name:  "delete",
						Usage: "Delete the session instead of printing it",
					},
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a video with its index, transcript, summary and sessions",
				ArgsUsage: "<video-url-or-id>",
				Action:    deleteCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Re-embed every indexed video with the configured embedding model",
				Action: reembedCommand,
			},
			{
				Name:      "watch",
				Usage:     "Follow job status events published to redis",
				ArgsUsage: "[video-url-or-id]",
				Action:    watchCommand,
			},
		},
	}
}

// setup loads configuration and installs the default logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return err
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	if db := c.String("db"); db != "" {
		cfg.Storage.Path = db
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	c.App.Metadata = map[string]any{configKey: cfg}
	return nil
}

const configKey = "config"

func configFrom(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}
