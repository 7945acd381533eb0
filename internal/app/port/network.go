package port

import (
	"context"
	"math/big"

	"blockchain_analytics/internal/domain/entity"
)

// BalanceClient reads native balances for one network.
// Implementations exist for the explorer API and for JSON-RPC nodes.
type BalanceClient interface {
	GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error)

	// Definition returns the network definition associated with this client.
	Definition() entity.NetworkDefinition
}

// NetworkDefinitionProvider defines the interface for providing network definitions.
type NetworkDefinitionProvider interface {
	// GetAllNetworkDefinitions returns all available network definitions as a slice.
	GetAllNetworkDefinitions() []entity.NetworkDefinition

	// GetNetworkDefinitionByName returns a network by identifier (case-insensitive).
	GetNetworkDefinitionByName(nameOrIdentifier string) (entity.NetworkDefinition, bool)
}

// BalanceClientProvider hands out a BalanceClient suited to a network's balance source.
type BalanceClientProvider interface {
	GetClient(networkDefinition entity.NetworkDefinition) (BalanceClient, error)
}
