package main

import (
	"fmt"
	"os"
	"strings"

	"blockchain_analytics/internal/config"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "chainscope",
		Usage: "Etherscan transaction, address and portfolio analytics",
		Description: `Query Etherscan for transactions and address history, track native balances
across networks, render charts and flag unusual transactions.

Actions can be given as subcommands or with --action, e.g.
  chainscope --action analyze_tx --tx 0x...`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			analyzeTxCommand(),
			analyzeAddressCommand(),
			trackPortfolioCommand(),
			visualizeDataCommand(),
			detectAnomaliesCommand(),
			serveCommand(),
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				EnvVars: []string{config.EnvConfigPath},
				Value:   config.DefaultPath,
			},
			&cli.StringFlag{
				Name:    "network",
				Aliases: []string{"n"},
				Usage:   "Network identifier (ethereum, polygon, bsc, ...)",
				Value:   "ethereum",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
			&cli.StringFlag{
				Name:  "action",
				Usage: "Action to run: analyze_tx, analyze_address, track_portfolio, visualize_data, detect_anomalies, serve",
			},
		},
		Action: func(c *cli.Context) error {
			if action := c.String("action"); action != "" {
				return fmt.Errorf("unknown action %q", action)
			}
			return cli.ShowAppHelp(c)
		},
	}
}

func main() {
	if err := newApp().Run(rewriteActionArgs(os.Args)); err != nil {
		fmt.Fprintln(os.Stderr, describeError(err))
		os.Exit(1)
	}
}

// globalValueFlags are the global flags that consume the following argument.
var globalValueFlags = map[string]bool{
	"config": true, "c": true,
	"network": true, "n": true,
}

var globalBoolFlags = map[string]bool{"json": true, "j": true}

// rewriteActionArgs turns "--action NAME" into the NAME subcommand. Global flags are moved in front of
// it wherever they appear, so they may follow the action like any other flag.
// Arguments are returned unchanged when no known action is given.
func rewriteActionArgs(args []string) []string {
	if len(args) < 2 {
		return args
	}

	action := ""
	globals := make([]string, 0, len(args))
	rest := make([]string, 0, len(args))
	for i := 1; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		name, hasValue := flagName(a)
		switch {
		case name == "action":
			if hasValue {
				action = a[strings.Index(a, "=")+1:]
			} else if i+1 < len(args) {
				action = args[i+1]
				i++
			}
		case globalBoolFlags[name]:
			globals = append(globals, a)
		case globalValueFlags[name]:
			globals = append(globals, a)
			if !hasValue && i+1 < len(args) {
				globals = append(globals, args[i+1])
				i++
			}
		default:
			rest = append(rest, a)
		}
	}
	if action == "" || !isAction(action) {
		return args
	}

	out := make([]string, 0, len(args))
	out = append(out, args[0])
	out = append(out, globals...)
	out = append(out, action)
	out = append(out, rest...)
	return out
}

// flagName returns the name of a -flag/--flag argument and whether it carries "=value".
func flagName(arg string) (string, bool) {
	if !strings.HasPrefix(arg, "-") || arg == "-" || arg == "--" {
		return "", false
	}
	name := strings.TrimLeft(arg, "-")
	if i := strings.Index(name, "="); i >= 0 {
		return name[:i], true
	}
	return name, false
}

func isAction(name string) bool {
	for _, cmd := range newApp().Commands {
		if cmd.Name == name {
			return true
		}
	}
	return false
}
