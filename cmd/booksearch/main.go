package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/book-search-engine/pkg/logger"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "booksearch",
		Usage: "Build the book indexes and query them offline",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"BS_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Override logging level (debug, info, warn, error)",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build every index and store the checkpoints",
				Action: buildCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "fresh",
						Usage: "Drop existing checkpoints first",
					},
				},
			},
			{
				Name:      "word",
				Usage:     "Books containing a word, by relevance",
				ArgsUsage: "WORD",
				Action:    wordCommand,
			},
			{
				Name:      "search",
				Usage:     "Books matching every word of a query",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "by",
						Usage: "Index to search: keywords, titles or authors",
						Value: "keywords",
					},
					&cli.BoolFlag{
						Name:  "closeness",
						Usage: "Order keyword results by closeness",
					},
				},
			},
			{
				Name:      "regex",
				Usage:     "Books matching a regular expression",
				ArgsUsage: "PATTERN",
				Action:    regexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "field",
						Usage: "Restrict to keywords, titles or authors",
					},
					&cli.BoolFlag{
						Name:  "closeness",
						Usage: "Order results by closeness",
					},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Books similar to the given ones",
				ArgsUsage: "ID...",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of suggestions",
						Value: 10,
					},
				},
			},
			{
				Name:      "distance",
				Usage:     "Jaccard distance between two books",
				ArgsUsage: "ID ID",
				Action:    distanceCommand,
			},
			{
				Name:   "import",
				Usage:  "Load a JSON catalog into the configured PostgreSQL database",
				Action: importCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "from",
						Aliases:  []string{"f"},
						Usage:    "Path to the JSON catalog",
						Required: true,
					},
				},
			},
		},
	}
}

// setup loads the config into the app metadata and configures logging.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	logger.SetupWriter(c.App.ErrWriter, cfg.Logging.Level, cfg.Logging.Format)
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]interface{})
	}
	c.App.Metadata["config"] = cfg
	return nil
}
