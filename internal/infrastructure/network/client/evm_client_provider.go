package client

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/metrics"
)

const defaultProviderConnectionTimeout = 10 * time.Second

// explorerBalanceClient reads balances through the block explorer bound to the network's chain.
type explorerBalanceClient struct {
	explorer port.ExplorerClient
	netDef   entity.NetworkDefinition
}

// NewExplorerBalanceClient adapts an explorer client to port.BalanceClient.
func NewExplorerBalanceClient(explorer port.ExplorerClient, netDef entity.NetworkDefinition) port.BalanceClient {
	return &explorerBalanceClient{explorer: explorer.ForChain(netDef.ChainID), netDef: netDef}
}

func (c *explorerBalanceClient) GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error) {
	return c.explorer.GetBalance(ctx, walletAddress)
}

func (c *explorerBalanceClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// balanceClientProvider implements port.BalanceClientProvider.
type balanceClientProvider struct {
	clients           map[string]port.BalanceClient
	mu                sync.Mutex
	explorer          port.ExplorerClient
	logger            port.Logger
	metrics           *metrics.Metrics
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
}

// NewBalanceClientProvider creates a provider that caches one client per network.
// explorer may be nil when no network uses the explorer balance source.
func NewBalanceClientProvider(explorer port.ExplorerClient, rpcCallTimeout time.Duration, logger port.Logger, m *metrics.Metrics) port.BalanceClientProvider {
	return &balanceClientProvider{
		clients:           make(map[string]port.BalanceClient),
		explorer:          explorer,
		logger:            logger,
		metrics:           m,
		connectionTimeout: defaultProviderConnectionTimeout,
		rpcCallTimeout:    rpcCallTimeout,
	}
}

// GetClient returns the cached client for netDef, creating it on first use.
func (p *balanceClientProvider) GetClient(netDef entity.NetworkDefinition) (port.BalanceClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clientKey := fmt.Sprintf("%s:%d:%s", netDef.Identifier, netDef.ChainID, netDef.BalanceSource)
	if client, exists := p.clients[clientKey]; exists {
		return client, nil
	}

	var (
		client port.BalanceClient
		err    error
	)
	switch netDef.BalanceSource {
	case entity.BalanceSourceRPC:
		p.logger.Info("Creating new EVM client", "network", netDef.Identifier, "rpc_primary", netDef.PrimaryRPCURL)
		client, err = NewEVMClient(netDef, p.connectionTimeout, p.rpcCallTimeout, p.metrics)
	case entity.BalanceSourceExplorer, "":
		if p.explorer == nil {
			err = fmt.Errorf("no explorer client available for network %s", netDef.Identifier)
			break
		}
		p.logger.Info("Using explorer balance client", "network", netDef.Identifier, "chain_id", netDef.ChainID)
		client = NewExplorerBalanceClient(p.explorer, netDef)
	default:
		err = fmt.Errorf("unknown balance source %q", netDef.BalanceSource)
	}
	if err != nil {
		p.logger.Error("Failed to create balance client", "network", netDef.Identifier, "error", err)
		return nil, fmt.Errorf("failed to create balance client for %s: %w", netDef.Identifier, err)
	}

	p.clients[clientKey] = client
	return client, nil
}
