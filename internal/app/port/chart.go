package port

import "blockchain_analytics/internal/domain/entity"

// ChartRenderer draws chart data to image files. The output extension selects the format.
type ChartRenderer interface {
	TransactionVolume(days []entity.DailyVolume, output string) error
	PriceEvolution(points []entity.PricePoint, symbol, output string) error
	Allocation(valuesUSD map[string]float64, output string) error
	GasUsage(txs []entity.Transaction, output string) error
	Dashboard(data entity.DashboardData, output string) error
}
