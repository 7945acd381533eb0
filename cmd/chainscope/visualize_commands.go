package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"blockchain_analytics/internal/app/service"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/infrastructure/chart"

	"github.com/urfave/cli/v2"
)

const defaultPriceDays = 30

// chartOutput applies --format to the output name; an explicit extension wins over the default one.
func chartOutput(output, format, kind string) (string, error) {
	if format == "" {
		return output, nil
	}
	format = strings.ToLower(format)
	switch format {
	case chart.FormatPNG, chart.FormatSVG, chart.FormatPDF:
	default:
		return "", fmt.Errorf("%w: unsupported format %q (want png, svg or pdf)", entity.ErrInvalidInput, format)
	}
	if output == "" {
		output = kind
	}
	return strings.TrimSuffix(output, filepath.Ext(output)) + "." + format, nil
}

func visualizeDataCommand() *cli.Command {
	return &cli.Command{
		Name:      "visualize_data",
		Usage:     "Render charts from address history, prices or the portfolio",
		ArgsUsage: "[ADDRESS]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Address whose history is charted (volume, gas, dashboard)",
			},
			&cli.StringFlag{
				Name:  "chart",
				Usage: "Chart kind: volume, gas, price, allocation, dashboard",
				Value: service.ChartVolume,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output file; the extension selects the format (default: <chart>.png)",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: png, svg or pdf",
			},
			&cli.IntFlag{
				Name:  "days",
				Usage: "Only chart transactions of the last N days (0 = all)",
			},
			&cli.IntFlag{
				Name:  "price-days",
				Usage: "Days of daily price history for the price chart",
				Value: defaultPriceDays,
			},
		},
		Action: func(c *cli.Context) error {
			kind := strings.ToLower(c.String("chart"))
			address := firstArgOr(c, "address")
			needsHistory := kind == service.ChartVolume || kind == service.ChartGas
			switch kind {
			case service.ChartVolume, service.ChartGas, service.ChartPrice, service.ChartAllocation, service.ChartDashboard:
			default:
				return fmt.Errorf("%w: unknown chart %q", entity.ErrInvalidInput, kind)
			}
			if needsHistory && address == "" {
				return fmt.Errorf("%w: --address is required for the %s chart", entity.ErrInvalidInput, kind)
			}
			if address != "" {
				if err := requireAddress(address); err != nil {
					return err
				}
			}
			output, err := chartOutput(c.String("output"), c.String("format"), kind)
			if err != nil {
				return err
			}

			d, cleanup, err := loadDeps(c)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx := c.Context
			var path string
			switch kind {
			case service.ChartVolume, service.ChartGas:
				txs, err := d.portfolio.TransactionHistory(ctx, address, d.network.Identifier, c.Int("days"))
				if err != nil {
					return err
				}
				if kind == service.ChartVolume {
					path, err = d.visualizer.PlotTransactionVolume(txs, output)
				} else {
					path, err = d.visualizer.PlotGasUsage(txs, output)
				}
				if err != nil {
					return err
				}

			case service.ChartPrice:
				points, err := d.analyzer.DailyPrices(ctx, c.Int("price-days"))
				if err != nil {
					return err
				}
				if path, err = d.visualizer.PlotPriceEvolution(points, "ETH", output); err != nil {
					return err
				}

			case service.ChartAllocation:
				summary, err := d.portfolio.Summary(ctx)
				if err != nil {
					return err
				}
				if path, err = d.visualizer.PlotPortfolioAllocation(summary, output); err != nil {
					return err
				}

			case service.ChartDashboard:
				data := entity.DashboardData{Title: d.network.Name}
				if address != "" {
					txs, err := d.portfolio.TransactionHistory(ctx, address, d.network.Identifier, c.Int("days"))
					if err != nil {
						return err
					}
					data.Transactions = txs
				}
				if points, err := d.analyzer.DailyPrices(ctx, c.Int("price-days")); err != nil {
					d.log.Warn("Price history unavailable, dashboard drawn without it", "error", err)
				} else {
					data.Prices = points
				}
				if len(d.portfolio.ListAddresses("")) > 0 {
					summary, err := d.portfolio.Summary(ctx)
					if err != nil {
						return err
					}
					data.AllocationUSD = summary.AllocationUSD()
				}
				if path, err = d.visualizer.Dashboard(data, output); err != nil {
					return err
				}
			}

			if c.Bool("json") {
				return outputJSON(map[string]string{"chart": kind, "output": path})
			}
			fmt.Fprintf(stdout, "Chart saved to %s\n", path)
			return nil
		},
	}
}
