package port

import (
	"context"

	"blockchain_analytics/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// Analyzer validates input and fetches raw transaction and address data.
type Analyzer interface {
	ValidateAddress(address string) bool
	ValidateTxHash(hash string) bool
	GetTransaction(ctx context.Context, hash string) (*entity.Transaction, error)
	GetAddressHistory(ctx context.Context, address string, query entity.HistoryQuery) ([]entity.Transaction, error)
	GetBalance(ctx context.Context, address string) (decimal.Decimal, error)
	AnalyzeAddress(ctx context.Context, address string, recent int) (*entity.AddressReport, error)
	DailyPrices(ctx context.Context, days int) ([]entity.PricePoint, error)
}

// PatternAnalyzer flags outlier transactions.
type PatternAnalyzer interface {
	DetectAnomalies(txs []entity.Transaction, features []string) ([]entity.Anomaly, error)
}
