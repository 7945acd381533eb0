package entity

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// AddressReport summarizes an address: balance, activity window, flows and its latest transactions.
type AddressReport struct {
	Address     string          `json:"address"`
	Balance     decimal.Decimal `json:"balance"`
	BalanceWei  *big.Int        `json:"balanceWei"`
	TxCount     int             `json:"txCount"`
	FirstSeen   time.Time       `json:"firstSeen,omitempty"`
	LastSeen    time.Time       `json:"lastSeen,omitempty"`
	TotalIn     decimal.Decimal `json:"totalIn"`
	TotalOut    decimal.Decimal `json:"totalOut"`
	FeesPaid    decimal.Decimal `json:"feesPaid"`
	FailedTxs   int             `json:"failedTxs"`
	Recent      []Transaction   `json:"recent"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
