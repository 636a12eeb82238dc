package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kailas-cloud/marketsearch/internal/version"
	marketsearch "github.com/kailas-cloud/marketsearch/pkg/sdk"
)

const defaultTimeout = 5 * time.Second

// Channels accepted by --channel.
const (
	channelSearch      = "search"
	channelMarketplace = "marketplace"
)

func newClient(c *cli.Command) (*marketsearch.Client, error) {
	opts := []marketsearch.Option{
		marketsearch.WithTimeout(c.Duration("timeout")),
		marketsearch.WithUserAgent("msquery/" + version.Version),
	}
	if c.Bool("debug") {
		opts = append(opts, marketsearch.WithLogger(
			slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})),
		))
	}
	return marketsearch.New(c.String("url"), opts...)
}

func searchCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Run a predictive search",
		ArgsUsage: "<term>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "channel",
				Usage: "search or marketplace",
				Value: channelSearch,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Results per category (0 = server default)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			q := strings.Join(c.Args().Slice(), " ")
			if strings.TrimSpace(q) == "" {
				return errors.New("search term is required")
			}
			client, err := newClient(c)
			if err != nil {
				return err
			}

			var res marketsearch.PredictiveResponse
			switch c.String("channel") {
			case channelSearch:
				res, err = client.Predictive(ctx, q, c.Int("limit"))
			case channelMarketplace:
				res, err = client.Marketplace(ctx, q, c.Int("limit"))
			default:
				return fmt.Errorf("unknown channel %q", c.String("channel"))
			}
			if err != nil {
				return err
			}
			printPredictive(out, res)
			return nil
		},
	}
}

func healthCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Show service health",
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := newClient(c)
			if err != nil {
				return err
			}
			h, err := client.Health(ctx)
			if err != nil {
				return err
			}
			printHealth(out, h)
			if !h.Healthy() {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func versionCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Action: func(context.Context, *cli.Command) error {
			_, _ = fmt.Fprintf(out, "msquery %s\n", version.String())
			return nil
		},
	}
}

func printPredictive(out io.Writer, res marketsearch.PredictiveResponse) {
	_, _ = fmt.Fprintf(out, "term %q: %d results\n", res.Term, res.Result.Total)
	for _, c := range res.Result.Items.Creators {
		_, _ = fmt.Fprintf(out, "  creator  @%-20s %s\n", c.Handle, c.DisplayName)
	}
	for _, p := range res.Result.Items.Products {
		by := ""
		if p.Creator != nil {
			by = " by @" + p.Creator.Handle
		}
		_, _ = fmt.Fprintf(out, "  product  %-30s %s %s%s\n",
			p.Title, p.Variant.Price.Amount, p.Variant.Price.CurrencyCode, by)
	}
}

func printHealth(out io.Writer, h marketsearch.HealthStatus) {
	_, _ = fmt.Fprintf(out, "status %s\n", h.Status)
	for name, status := range h.Checks {
		_, _ = fmt.Fprintf(out, "  %-10s %s\n", name, status)
	}
}
