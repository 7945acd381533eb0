package port

import (
	"context"

	"blockchain_analytics/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// DEXScreenerClient defines the interface for interacting with the DEX Screener API.
type DEXScreenerClient interface {
	GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error)
}

// PriceService values native assets in USD.
type PriceService interface {
	NativePriceUSD(ctx context.Context, network entity.NetworkDefinition) (decimal.Decimal, error)
}
