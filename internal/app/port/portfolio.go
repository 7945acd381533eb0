package port

import (
	"context"

	"blockchain_analytics/internal/domain/entity"
)

// WalletProvider defines the interface for fetching tracked wallet addresses.
type WalletProvider interface {
	GetWallets() ([]entity.Wallet, error)
}

// PortfolioTracker manages tracked addresses and aggregates their holdings.
type PortfolioTracker interface {
	AddAddress(address, network string) error
	RemoveAddress(address, network string) bool
	ListAddresses(network string) map[string][]string
	Summary(ctx context.Context) (entity.PortfolioSummary, error)
	TransactionHistory(ctx context.Context, address, network string, days int) ([]entity.Transaction, error)
}
