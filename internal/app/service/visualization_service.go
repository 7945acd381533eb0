package service

import (
	"path/filepath"
	"sort"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/metrics"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

const defaultChartExt = ".png"

// Chart kinds, also used as metric labels and CLI values.
const (
	ChartVolume     = "volume"
	ChartPrice      = "price"
	ChartAllocation = "allocation"
	ChartGas        = "gas"
	ChartDashboard  = "dashboard"
)

// VisualizationService prepares chart data and hands it to a renderer.
type VisualizationService struct {
	renderer  port.ChartRenderer
	outputDir string
	logger    port.Logger
	metrics   *metrics.Metrics
}

// NewVisualizationService creates the service. Relative outputs are placed under outputDir when set.
func NewVisualizationService(r port.ChartRenderer, outputDir string, l port.Logger, m *metrics.Metrics) *VisualizationService {
	return &VisualizationService{renderer: r, outputDir: outputDir, logger: l, metrics: m}
}

// DailyVolume sums transaction value per UTC day, from the first to the last day seen.
// Days without transactions are present with zero volume.
func DailyVolume(txs []entity.Transaction) []entity.DailyVolume {
	if len(txs) == 0 {
		return []entity.DailyVolume{}
	}

	byDay := make(map[time.Time]*entity.DailyVolume)
	var first, last time.Time
	for _, tx := range txs {
		day := tx.Timestamp.UTC().Truncate(24 * time.Hour)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if day.After(last) {
			last = day
		}
		dv, ok := byDay[day]
		if !ok {
			dv = &entity.DailyVolume{Day: day, Volume: decimal.Zero}
			byDay[day] = dv
		}
		dv.Volume = dv.Volume.Add(tx.Value)
		dv.Count++
	}

	out := make([]entity.DailyVolume, 0, int(last.Sub(first)/(24*time.Hour))+1)
	for day := first; !day.After(last); day = day.Add(24 * time.Hour) {
		if dv, ok := byDay[day]; ok {
			out = append(out, *dv)
			continue
		}
		out = append(out, entity.DailyVolume{Day: day, Volume: decimal.Zero})
	}
	return out
}

// resolve applies the output directory and the default extension.
func (s *VisualizationService) resolve(output, kind string) string {
	if output == "" {
		output = kind
	}
	if filepath.Ext(output) == "" {
		output += defaultChartExt
	}
	return utils.ResolveOutput(s.outputDir, output)
}

func (s *VisualizationService) done(kind, path string, err error) (string, error) {
	if err != nil {
		s.logger.Error("Failed to render chart", "chart", kind, "output", path, "error", err)
		return "", err
	}
	s.metrics.RecordChart(kind)
	s.logger.Info("Chart saved", "chart", kind, "output", path)
	return path, nil
}

// PlotTransactionVolume renders daily volume bars and returns the written path.
func (s *VisualizationService) PlotTransactionVolume(txs []entity.Transaction, output string) (string, error) {
	path := s.resolve(output, ChartVolume)
	return s.done(ChartVolume, path, s.renderer.TransactionVolume(DailyVolume(txs), path))
}

// PlotPriceEvolution renders a price line sorted by time.
func (s *VisualizationService) PlotPriceEvolution(points []entity.PricePoint, symbol, output string) (string, error) {
	sorted := append([]entity.PricePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })
	path := s.resolve(output, ChartPrice)
	return s.done(ChartPrice, path, s.renderer.PriceEvolution(sorted, symbol, path))
}

// PlotPortfolioAllocation renders the USD allocation of a portfolio summary.
func (s *VisualizationService) PlotPortfolioAllocation(summary entity.PortfolioSummary, output string) (string, error) {
	path := s.resolve(output, ChartAllocation)
	return s.done(ChartAllocation, path, s.renderer.Allocation(summary.AllocationUSD(), path))
}

// PlotGasUsage renders gas price per transaction.
func (s *VisualizationService) PlotGasUsage(txs []entity.Transaction, output string) (string, error) {
	path := s.resolve(output, ChartGas)
	return s.done(ChartGas, path, s.renderer.GasUsage(txs, path))
}

// Dashboard renders every available section of data into one image.
func (s *VisualizationService) Dashboard(data entity.DashboardData, output string) (string, error) {
	if len(data.Volume) == 0 && len(data.Transactions) > 0 {
		data.Volume = DailyVolume(data.Transactions)
	}
	path := s.resolve(output, ChartDashboard)
	return s.done(ChartDashboard, path, s.renderer.Dashboard(data, path))
}
