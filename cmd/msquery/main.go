// Command msquery queries a running marketsearch instance from the terminal.
//
//	msquery search vintage jacket
//	msquery --url https://search.example.com search --channel marketplace --limit 3 hat
//	msquery health
package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "msquery",
		Usage: "Query the marketsearch predictive API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Service base URL",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("MARKETSEARCH_URL"),
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: defaultTimeout,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			searchCommand(os.Stdout),
			healthCommand(os.Stdout),
			versionCommand(os.Stdout),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
