package main

import (
	"fmt"

	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/urfave/cli/v2"
)

// firstArgOr returns the flag value, falling back to the first positional argument.
func firstArgOr(c *cli.Context, flag string) string {
	if v := c.String(flag); v != "" {
		return v
	}
	return c.Args().First()
}

// requireTxHash and requireAddress reject bad input before any config or API key is needed.
func requireTxHash(hash string) error {
	if hash == "" {
		return fmt.Errorf("%w: --tx is required", entity.ErrInvalidInput)
	}
	if !utils.IsValidTxHash(hash) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidTxHash, hash)
	}
	return nil
}

func requireAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: --address is required", entity.ErrInvalidInput)
	}
	if !utils.IsValidAddress(address) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidAddress, address)
	}
	return nil
}

func analyzeTxCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze_tx",
		Usage:     "Fetch and show a transaction by hash",
		ArgsUsage: "[TX_HASH]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tx",
				Usage: "Transaction hash (0x + 64 hex characters)",
			},
		},
		Action: func(c *cli.Context) error {
			hash := firstArgOr(c, "tx")
			if err := requireTxHash(hash); err != nil {
				return err
			}

			d, cleanup, err := loadDeps(c)
			if err != nil {
				return err
			}
			defer cleanup()

			tx, err := d.analyzer.GetTransaction(c.Context, hash)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(tx)
			}
			printTransaction(tx)
			return nil
		},
	}
}

func analyzeAddressCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze_address",
		Usage:     "Show balance, activity and recent transactions of an address",
		ArgsUsage: "[ADDRESS]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Address (0x + 40 hex characters)",
			},
			&cli.IntFlag{
				Name:  "recent",
				Usage: "Number of recent transactions to show (default: analysis.recent_transactions)",
			},
		},
		Action: func(c *cli.Context) error {
			address := firstArgOr(c, "address")
			if err := requireAddress(address); err != nil {
				return err
			}

			d, cleanup, err := loadDeps(c)
			if err != nil {
				return err
			}
			defer cleanup()

			recent := d.cfg.Analysis.RecentTransactions
			if c.IsSet("recent") {
				recent = c.Int("recent")
			}

			report, err := d.analyzer.AnalyzeAddress(c.Context, address, recent)
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(report)
			}
			printAddressReport(report)
			return nil
		},
	}
}

func detectAnomaliesCommand() *cli.Command {
	return &cli.Command{
		Name:      "detect_anomalies",
		Usage:     "Flag unusual transactions of an address with an isolation forest",
		ArgsUsage: "[ADDRESS]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "address",
				Usage: "Address whose history is analyzed",
			},
			&cli.StringSliceFlag{
				Name:  "feature",
				Usage: "Feature to use (value, gas_used, gas_price, block_number); repeatable",
			},
			&cli.Float64Flag{
				Name:  "contamination",
				Usage: "Expected share of anomalies in (0, 0.5] (default: analysis.contamination)",
			},
		},
		Action: func(c *cli.Context) error {
			address := firstArgOr(c, "address")
			if err := requireAddress(address); err != nil {
				return err
			}

			contamination := c.Float64("contamination")
			if c.IsSet("contamination") && (contamination <= 0 || contamination > 0.5) {
				return fmt.Errorf("%w: contamination must be in (0, 0.5], got %g", entity.ErrInvalidInput, contamination)
			}

			d, cleanup, err := loadDeps(c)
			if err != nil {
				return err
			}
			defer cleanup()

			patterns := d.patterns
			if c.IsSet("contamination") {
				patterns = patterns.WithContamination(contamination)
			}

			txs, err := d.analyzer.GetAddressHistory(c.Context, address, entity.HistoryQuery{})
			if err != nil {
				return err
			}
			anomalies, err := patterns.DetectAnomalies(txs, c.StringSlice("feature"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return outputJSON(map[string]any{
					"address":      address,
					"transactions": len(txs),
					"anomalies":    anomalies,
				})
			}
			printAnomalies(anomalies, len(txs))
			return nil
		},
	}
}
