package service

import (
	"context"
	"fmt"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/shopspring/decimal"
)

// AnalyzerService implements port.Analyzer on top of a block explorer client.
// Every operation validates its input before any request is made.
type AnalyzerService struct {
	explorer port.ExplorerClient
	logger   port.Logger
	now      func() time.Time
}

// NewAnalyzerService creates an analyzer bound to one explorer chain.
func NewAnalyzerService(explorer port.ExplorerClient, logger port.Logger) *AnalyzerService {
	return &AnalyzerService{
		explorer: explorer,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateAddress reports whether address is 0x followed by 40 hex characters.
func (s *AnalyzerService) ValidateAddress(address string) bool {
	return utils.IsValidAddress(address)
}

// ValidateTxHash reports whether hash is 0x followed by 64 hex characters.
func (s *AnalyzerService) ValidateTxHash(hash string) bool {
	return utils.IsValidTxHash(hash)
}

func (s *AnalyzerService) requireAddress(address string) error {
	if !s.ValidateAddress(address) {
		s.logger.Warn("Rejected invalid address", "address", address)
		return fmt.Errorf("%w: %q", entity.ErrInvalidAddress, address)
	}
	return nil
}

// GetTransaction fetches a transaction by hash.
func (s *AnalyzerService) GetTransaction(ctx context.Context, hash string) (*entity.Transaction, error) {
	if !s.ValidateTxHash(hash) {
		s.logger.Warn("Rejected invalid transaction hash", "hash", hash)
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidTxHash, hash)
	}

	tx, err := s.explorer.GetTransaction(ctx, hash)
	if err != nil {
		s.logger.Error("Failed to fetch transaction", "hash", hash, "error", err)
		return nil, err
	}
	s.logger.Debug("Fetched transaction", "hash", hash, "block", tx.BlockNumber)
	return tx, nil
}

// GetAddressHistory lists the normal transactions of address.
func (s *AnalyzerService) GetAddressHistory(ctx context.Context, address string, query entity.HistoryQuery) ([]entity.Transaction, error) {
	if err := s.requireAddress(address); err != nil {
		return nil, err
	}

	txs, err := s.explorer.GetTransactions(ctx, address, query.WithDefaults())
	if err != nil {
		s.logger.Error("Failed to fetch address history", "address", address, "error", err)
		return nil, err
	}
	s.logger.Debug("Fetched address history", "address", address, "count", len(txs))
	return txs, nil
}

// GetBalance returns the native balance of address in ETH.
func (s *AnalyzerService) GetBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := s.requireAddress(address); err != nil {
		return decimal.Zero, err
	}

	wei, err := s.explorer.GetBalance(ctx, address)
	if err != nil {
		s.logger.Error("Failed to fetch balance", "address", address, "error", err)
		return decimal.Zero, err
	}
	return utils.WeiToEther(wei), nil
}

// AnalyzeAddress combines balance and full history into a report holding the most recent transactions first.
func (s *AnalyzerService) AnalyzeAddress(ctx context.Context, address string, recent int) (*entity.AddressReport, error) {
	if err := s.requireAddress(address); err != nil {
		return nil, err
	}

	wei, err := s.explorer.GetBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("balance: %w", err)
	}
	txs, err := s.explorer.GetTransactions(ctx, address, entity.HistoryQuery{Sort: entity.SortAsc})
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}

	report := &entity.AddressReport{
		Address:     address,
		Balance:     utils.WeiToEther(wei),
		BalanceWei:  wei,
		TxCount:     len(txs),
		TotalIn:     decimal.Zero,
		TotalOut:    decimal.Zero,
		FeesPaid:    decimal.Zero,
		GeneratedAt: s.now().UTC(),
	}

	for _, tx := range txs {
		if report.FirstSeen.IsZero() || tx.Timestamp.Before(report.FirstSeen) {
			report.FirstSeen = tx.Timestamp
		}
		if tx.Timestamp.After(report.LastSeen) {
			report.LastSeen = tx.Timestamp
		}
		if tx.IsError {
			report.FailedTxs++
		}
		if utils.SameAddress(tx.From, address) {
			report.FeesPaid = report.FeesPaid.Add(utils.WeiToEther(tx.FeeWei()))
			if !tx.IsError {
				report.TotalOut = report.TotalOut.Add(tx.Value)
			}
		}
		if utils.SameAddress(tx.To, address) && !tx.IsError {
			report.TotalIn = report.TotalIn.Add(tx.Value)
		}
	}

	if recent < 0 {
		recent = 0
	}
	if recent > len(txs) {
		recent = len(txs)
	}
	report.Recent = make([]entity.Transaction, 0, recent)
	for i := len(txs) - 1; i >= len(txs)-recent; i-- {
		report.Recent = append(report.Recent, txs[i])
	}

	s.logger.Info("Address analyzed", "address", address, "tx_count", report.TxCount, "balance", report.Balance.String())
	return report, nil
}

// DailyPrices returns the daily ETH/USD price for the last days days.
func (s *AnalyzerService) DailyPrices(ctx context.Context, days int) ([]entity.PricePoint, error) {
	if days <= 0 {
		return nil, fmt.Errorf("%w: days must be positive, got %d", entity.ErrInvalidInput, days)
	}
	end := s.now().UTC()
	start := end.AddDate(0, 0, -days)
	points, err := s.explorer.GetDailyPrices(ctx, start, end)
	if err != nil {
		s.logger.Error("Failed to fetch daily prices", "days", days, "error", err)
		return nil, err
	}
	return points, nil
}
