package entity

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a normalized transaction as returned by the explorer.
// Value is denominated in the network's native asset, ValueWei keeps the raw integer.
type Transaction struct {
	Hash            string          `json:"hash"`
	From            string          `json:"from"`
	To              string          `json:"to"`
	Value           decimal.Decimal `json:"value"`
	ValueWei        *big.Int        `json:"valueWei"`
	GasUsed         uint64          `json:"gasUsed"`
	GasLimit        uint64          `json:"gasLimit"`
	GasPrice        *big.Int        `json:"gasPrice"`
	BlockNumber     uint64          `json:"blockNumber"`
	Nonce           uint64          `json:"nonce"`
	Timestamp       time.Time       `json:"timestamp"`
	Status          string          `json:"status"` // "1" success, "0" failed, "" unknown
	IsError         bool            `json:"isError"`
	MethodID        string          `json:"methodId,omitempty"`
	ContractAddress string          `json:"contractAddress,omitempty"`
}

// FeeWei returns gasUsed * gasPrice.
func (t Transaction) FeeWei() *big.Int {
	if t.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(new(big.Int).SetUint64(t.GasUsed), t.GasPrice)
}

// HistoryQuery narrows an address history request.
type HistoryQuery struct {
	StartBlock uint64
	EndBlock   uint64
	Sort       string // "asc" or "desc"
	Page       int
	Offset     int
}

const (
	// DefaultEndBlock is the explorer's conventional "latest" upper bound.
	DefaultEndBlock uint64 = 99999999

	SortAsc  = "asc"
	SortDesc = "desc"
)

// WithDefaults fills unset fields.
func (q HistoryQuery) WithDefaults() HistoryQuery {
	if q.EndBlock == 0 {
		q.EndBlock = DefaultEndBlock
	}
	if q.Sort != SortDesc {
		q.Sort = SortAsc
	}
	return q
}

// PricePoint is a single (day, USD price) observation.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}
