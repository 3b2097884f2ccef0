// Command docdiff compares two documents section by section.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "docdiff",
		Usage: "compare two documents section by section",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML configuration file"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
			&cli.StringFlag{Name: "db", Usage: "comparison store: postgres:// URL or SQLite file path", EnvVars: []string{"DOCDIFF_DB"}},
		},
		Commands: []*cli.Command{
			{
				Name:      "compare",
				Usage:     "compare two documents",
				ArgsUsage: "A B",
				Flags: []cli.Flag{
					strategyFlag(),
					&cli.BoolFlag{Name: "json", Usage: "print the result as JSON"},
					&cli.BoolFlag{Name: "diff", Usage: "print a word diff of every common section"},
					&cli.BoolFlag{Name: "store", Usage: "save the result in the comparison store"},
				},
				Action: compareAction,
			},
			{
				Name:      "segment",
				Usage:     "print the sections of one document",
				ArgsUsage: "FILE",
				Flags:     []cli.Flag{strategyFlag()},
				Action:    segmentAction,
			},
			{
				Name:      "paragraphs",
				Usage:     "print the paragraph blocks of one document",
				ArgsUsage: "FILE",
				Action:    paragraphsAction,
			},
			{
				Name:      "diff",
				Usage:     "print a diff of the text of two documents",
				ArgsUsage: "A B",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "lines", Usage: "diff by lines instead of words"},
				},
				Action: diffAction,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "listen", Usage: "listen address"},
				},
				Action: serveAction,
			},
			{
				Name:      "history",
				Usage:     "list stored comparisons, or show one",
				ArgsUsage: "[ID]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of comparisons to list"},
				},
				Action: historyAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func strategyFlag() cli.Flag {
	return &cli.StringFlag{Name: "strategy", Aliases: []string{"s"}, Usage: "auto, numbering, layout or llm"}
}
