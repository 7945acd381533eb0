package main

import (
	"errors"
	"fmt"
	"sort"

	"blockchain_analytics/internal/domain/entity"

	"github.com/urfave/cli/v2"
)

func trackPortfolioCommand() *cli.Command {
	return &cli.Command{
		Name:  "track_portfolio",
		Usage: "Summarize native balances of the tracked addresses",
		Description: `Addresses come from portfolio.addresses, portfolio.wallets_file and any
--address flags (tracked on --network for this run only).`,
		ArgsUsage: "[ADDRESS...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "address",
				Usage: "Additional address to track; repeatable",
			},
			&cli.BoolFlag{
				Name:  "list",
				Usage: "Only list the tracked addresses",
			},
		},
		Action: func(c *cli.Context) error {
			d, cleanup, err := loadDeps(c)
			if err != nil {
				return err
			}
			defer cleanup()

			extra := append(c.StringSlice("address"), c.Args().Slice()...)
			for _, a := range extra {
				err := d.portfolio.AddAddress(a, d.network.Identifier)
				if errors.Is(err, entity.ErrDuplicateAddress) {
					continue
				}
				if err != nil {
					return err
				}
			}

			if c.Bool("list") {
				tracked := d.portfolio.ListAddresses("")
				if c.Bool("json") {
					return outputJSON(tracked)
				}
				networks := make([]string, 0, len(tracked))
				for network := range tracked {
					networks = append(networks, network)
				}
				sort.Strings(networks)
				for _, network := range networks {
					for _, a := range tracked[network] {
						fmt.Fprintf(stdout, "%s\t%s\n", network, a)
					}
				}
				return nil
			}

			summary, err := d.portfolio.Summary(c.Context)
			if err != nil {
				return err
			}
			if len(summary.Holdings) == 0 {
				return fmt.Errorf("no addresses tracked: set portfolio.addresses or portfolio.wallets_file, or pass --address")
			}

			if c.Bool("json") {
				return outputJSON(summary)
			}
			printSummary(summary)
			return nil
		},
	}
}
