package port

import (
	"context"
	"math/big"
	"time"

	"blockchain_analytics/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// ExplorerClient is the block explorer (Etherscan) API surface used by the analyzer.
type ExplorerClient interface {
	// GetTransaction returns entity.ErrNotFound when the explorer knows no such hash.
	GetTransaction(ctx context.Context, txHash string) (*entity.Transaction, error)
	// GetTransactions lists normal transactions of an address. "No transactions found" yields an empty slice.
	GetTransactions(ctx context.Context, address string, query entity.HistoryQuery) ([]entity.Transaction, error)
	// GetBalance returns the native balance in wei.
	GetBalance(ctx context.Context, address string) (*big.Int, error)
	GetETHPriceUSD(ctx context.Context) (decimal.Decimal, error)
	GetDailyPrices(ctx context.Context, start, end time.Time) ([]entity.PricePoint, error)
	// ForChain returns a client bound to another chain of a multi-chain explorer API.
	ForChain(chainID uint64) ExplorerClient
}
