package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyVolume is the summed transaction value of one UTC day.
type DailyVolume struct {
	Day    time.Time       `json:"day"`
	Volume decimal.Decimal `json:"volume"`
	Count  int             `json:"count"`
}

// DashboardData feeds the multi-panel dashboard. Empty sections are not drawn.
type DashboardData struct {
	Title         string
	Volume        []DailyVolume
	Transactions  []Transaction
	Prices        []PricePoint
	AllocationUSD map[string]float64
}
