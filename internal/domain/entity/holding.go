package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is one address's native balance entry within a tracked portfolio.
type Holding struct {
	Address     string          `json:"address"`
	Network     string          `json:"network"`
	Asset       string          `json:"asset"`
	Balance     decimal.Decimal `json:"balance"`
	PriceUSD    decimal.Decimal `json:"priceUSD"`
	ValueUSD    decimal.Decimal `json:"valueUSD"`
	TxCount     int             `json:"txCount"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Error       string          `json:"error,omitempty"`
}

// PortfolioSummary aggregates the holdings of every tracked address.
type PortfolioSummary struct {
	Holdings      []Holding       `json:"holdings"`
	TotalBalance  decimal.Decimal `json:"totalBalance"`
	TotalValueUSD decimal.Decimal `json:"totalValueUSD"`
	BaseCurrency  string          `json:"baseCurrency"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// NewPortfolioSummary sums balances and USD values of the given holdings.
func NewPortfolioSummary(holdings []Holding, baseCurrency string, at time.Time) PortfolioSummary {
	totalBalance := decimal.Zero
	totalValue := decimal.Zero
	for _, h := range holdings {
		totalBalance = totalBalance.Add(h.Balance)
		totalValue = totalValue.Add(h.ValueUSD)
	}
	return PortfolioSummary{
		Holdings:      holdings,
		TotalBalance:  totalBalance,
		TotalValueUSD: totalValue,
		BaseCurrency:  baseCurrency,
		GeneratedAt:   at,
	}
}

// Failed returns the holdings that could not be fetched.
func (s PortfolioSummary) Failed() []Holding {
	var failed []Holding
	for _, h := range s.Holdings {
		if h.Error != "" {
			failed = append(failed, h)
		}
	}
	return failed
}

// AllocationUSD returns USD value keyed by "network:address" for holdings with a positive value.
func (s PortfolioSummary) AllocationUSD() map[string]float64 {
	out := make(map[string]float64)
	for _, h := range s.Holdings {
		if !h.ValueUSD.IsPositive() {
			continue
		}
		v, _ := h.ValueUSD.Float64()
		out[h.Network+":"+h.Address] += v
	}
	return out
}

// Wallet is a tracked address on a network.
type Wallet struct {
	Address string
	Network string
}
