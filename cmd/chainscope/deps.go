package main

import (
	"fmt"
	"strings"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/app/service"
	"blockchain_analytics/internal/config"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/infrastructure/chart"
	"blockchain_analytics/internal/infrastructure/etherscan"
	"blockchain_analytics/internal/infrastructure/httpclient"
	networkclient "blockchain_analytics/internal/infrastructure/network/client"
	networkdefinition "blockchain_analytics/internal/infrastructure/network/definition"
	"blockchain_analytics/internal/infrastructure/walletloader"
	"blockchain_analytics/internal/pkg/logger"
	"blockchain_analytics/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// deps holds every component a command may need, built from the loaded configuration.
type deps struct {
	cfg      *config.Config
	zap      *zap.Logger
	log      port.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	networks *networkdefinition.NetworkDefinitionProvider
	network  entity.NetworkDefinition
	explorer *etherscan.Client

	analyzer   *service.AnalyzerService
	patterns   *service.PatternService
	prices     *service.TokenPriceService
	portfolio  *service.PortfolioService
	visualizer *service.VisualizationService
}

// loadDeps loads the configuration named by --config and wires the services for --network.
// The returned func flushes the logger.
func loadDeps(c *cli.Context) (*deps, func(), error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, nil, err
	}

	zapLogger, err := logger.NewZap(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return nil, nil, err
	}
	logger.InitFromZap(zapLogger, cfg.Logging.Level)
	cleanup := func() { _ = zapLogger.Sync() }
	log := logger.NewSlogAdapter()

	d := &deps{
		cfg:      cfg,
		zap:      zapLogger,
		log:      log,
		registry: prometheus.NewRegistry(),
	}
	d.metrics = metrics.NewMetrics(d.registry)

	d.networks = networkdefinition.NewNetworkDefinitionProvider(log, cfg.Networks)
	netName := strings.ToLower(strings.TrimSpace(c.String("network")))
	network, ok := d.networks.GetNetworkDefinitionByName(netName)
	if !ok {
		cleanup()
		return nil, nil, fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, netName)
	}
	d.network = network

	if err := cfg.RequireAPIKey(); err != nil {
		cleanup()
		return nil, nil, err
	}

	d.explorer = etherscan.NewClient(etherscan.Config{
		BaseURL:   cfg.API.BaseURL,
		APIKey:    cfg.API.EtherscanAPIKey,
		ChainID:   cfg.API.ChainID,
		RateLimit: cfg.API.RateLimit,
		Timeout:   time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		CacheTTL:  cfg.CacheTTL(),
	}, zapLogger, d.metrics)

	d.analyzer = service.NewAnalyzerService(d.explorer.ForChain(network.ChainID), log)
	d.patterns = service.NewPatternService(cfg.Analysis.Contamination, log, d.metrics)

	dex := httpclient.NewDEXScreenerClient(
		cfg.DEXScreener.BaseURL,
		time.Duration(cfg.DEXScreener.RequestTimeoutMillis)*time.Millisecond,
		zapLogger,
	)
	d.prices = service.NewTokenPriceService(dex, d.explorer, cfg.CacheTTL(), log)

	balances := networkclient.NewBalanceClientProvider(
		d.explorer,
		time.Duration(cfg.Performance.RPCCallTimeoutSeconds)*time.Second,
		log,
		d.metrics,
	)
	d.portfolio = service.NewPortfolioService(
		d.networks,
		balances,
		d.explorer,
		d.prices,
		log,
		d.metrics,
		cfg.Portfolio.BaseCurrency,
		cfg.Performance.MaxConcurrentRoutines,
	)
	if err := d.seedPortfolio(); err != nil {
		cleanup()
		return nil, nil, err
	}

	renderer, err := chart.NewRenderer(
		cfg.Visualization.Theme,
		cfg.Visualization.WidthInches,
		cfg.Visualization.HeightInches,
		cfg.Visualization.DPI,
	)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	d.visualizer = service.NewVisualizationService(renderer, cfg.Visualization.OutputDir, log, d.metrics)

	return d, cleanup, nil
}

// seedPortfolio tracks the configured addresses and the wallets file. Bad entries are logged and skipped.
func (d *deps) seedPortfolio() error {
	for _, a := range d.cfg.Portfolio.Addresses {
		network := a.Network
		if network == "" {
			network = d.network.Identifier
		}
		if err := d.portfolio.AddAddress(a.Address, network); err != nil {
			d.log.Warn("Skipping configured portfolio address", "address", a.Address, "network", network, "error", err)
		}
	}
	wallets := walletloader.NewWalletFileLoader(d.cfg.Portfolio.WalletsFile, d.network.Identifier, d.log)
	return d.portfolio.LoadWallets(wallets)
}
