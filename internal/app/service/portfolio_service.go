package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/metrics"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// PortfolioService implements port.PortfolioTracker. Tracked addresses live in memory only.
type PortfolioService struct {
	networkProvider       port.NetworkDefinitionProvider
	clientProvider        port.BalanceClientProvider
	explorer              port.ExplorerClient
	priceSvc              port.PriceService
	logger                port.Logger
	metrics               *metrics.Metrics
	baseCurrency          string
	maxConcurrentRoutines int
	now                   func() time.Time

	mu        sync.RWMutex
	addresses map[string][]string // network identifier -> addresses in insertion order
}

// NewPortfolioService creates an empty tracker. explorer and priceSvc may be nil,
// in which case transaction counts and USD values are left at zero.
func NewPortfolioService(
	np port.NetworkDefinitionProvider,
	cp port.BalanceClientProvider,
	explorer port.ExplorerClient,
	ps port.PriceService,
	l port.Logger,
	m *metrics.Metrics,
	baseCurrency string,
	maxRoutines int,
) *PortfolioService {
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	return &PortfolioService{
		networkProvider:       np,
		clientProvider:        cp,
		explorer:              explorer,
		priceSvc:              ps,
		logger:                l,
		metrics:               m,
		baseCurrency:          strings.ToUpper(baseCurrency),
		maxConcurrentRoutines: maxRoutines,
		now:                   time.Now,
		addresses:             make(map[string][]string),
	}
}

// LoadWallets tracks every wallet from wp, logging and skipping invalid or duplicate entries.
func (s *PortfolioService) LoadWallets(wp port.WalletProvider) error {
	wallets, err := wp.GetWallets()
	if err != nil {
		return fmt.Errorf("failed to load wallets: %w", err)
	}
	added := 0
	for _, w := range wallets {
		if err := s.AddAddress(w.Address, w.Network); err != nil {
			s.logger.Warn("Skipping wallet", "address", w.Address, "network", w.Network, "error", err)
			continue
		}
		added++
	}
	s.logger.Debug("Wallets tracked", "added", added, "total", len(wallets))
	return nil
}

// AddAddress starts tracking address on network. Network names are case-insensitive.
func (s *PortfolioService) AddAddress(address, network string) error {
	if !utils.IsValidAddress(address) {
		return fmt.Errorf("%w: %q", entity.ErrInvalidAddress, address)
	}
	network = strings.ToLower(strings.TrimSpace(network))
	if _, ok := s.networkProvider.GetNetworkDefinitionByName(network); !ok {
		return fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, network)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.addresses[network] {
		if utils.SameAddress(existing, address) {
			return fmt.Errorf("%w: %s on %s", entity.ErrDuplicateAddress, address, network)
		}
	}
	s.addresses[network] = append(s.addresses[network], address)
	s.logger.Info("Address added to portfolio", "address", address, "network", network)
	return nil
}

// RemoveAddress stops tracking address on network and reports whether it was tracked.
func (s *PortfolioService) RemoveAddress(address, network string) bool {
	network = strings.ToLower(strings.TrimSpace(network))

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.addresses[network]
	for i, existing := range list {
		if utils.SameAddress(existing, address) {
			s.addresses[network] = append(list[:i:i], list[i+1:]...)
			if len(s.addresses[network]) == 0 {
				delete(s.addresses, network)
			}
			s.logger.Info("Address removed from portfolio", "address", address, "network", network)
			return true
		}
	}
	return false
}

// ListAddresses returns a copy of the tracked addresses, all networks when network is empty.
func (s *PortfolioService) ListAddresses(network string) map[string][]string {
	network = strings.ToLower(strings.TrimSpace(network))

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]string)
	for n, list := range s.addresses {
		if network != "" && n != network {
			continue
		}
		out[n] = append([]string(nil), list...)
	}
	return out
}

func (s *PortfolioService) snapshot() []entity.Wallet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	networks := make([]string, 0, len(s.addresses))
	for n := range s.addresses {
		networks = append(networks, n)
	}
	sort.Strings(networks)

	var wallets []entity.Wallet
	for _, n := range networks {
		for _, a := range s.addresses[n] {
			wallets = append(wallets, entity.Wallet{Address: a, Network: n})
		}
	}
	return wallets
}

// Summary fetches a holding for every tracked address. A failing address yields a holding
// with Error set and a zero balance; it does not fail the summary.
func (s *PortfolioService) Summary(ctx context.Context) (entity.PortfolioSummary, error) {
	wallets := s.snapshot()
	holdings := make([]entity.Holding, len(wallets))
	prices := s.nativePrices(ctx, wallets)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrentRoutines)
	for i, w := range wallets {
		g.Go(func() error {
			holdings[i] = s.fetchHolding(gctx, w, prices[w.Network])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return entity.PortfolioSummary{}, err
	}

	summary := entity.NewPortfolioSummary(holdings, s.baseCurrency, s.now().UTC())
	s.logger.Info("Portfolio summary computed",
		"holdings", len(holdings),
		"failed", len(summary.Failed()),
		"total_balance", summary.TotalBalance.String(),
		"total_value_usd", summary.TotalValueUSD.StringFixed(2))
	return summary, nil
}

// nativePrices looks up one USD price per tracked network. Failures leave the price at zero.
func (s *PortfolioService) nativePrices(ctx context.Context, wallets []entity.Wallet) map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	if s.priceSvc == nil {
		return prices
	}
	for _, w := range wallets {
		if _, done := prices[w.Network]; done {
			continue
		}
		prices[w.Network] = decimal.Zero
		def, ok := s.networkProvider.GetNetworkDefinitionByName(w.Network)
		if !ok {
			continue
		}
		price, err := s.priceSvc.NativePriceUSD(ctx, def)
		if err != nil {
			s.logger.Warn("Native price unavailable, USD values will be zero", "network", w.Network, "error", err)
			continue
		}
		prices[w.Network] = price
	}
	return prices
}

func (s *PortfolioService) fetchHolding(ctx context.Context, w entity.Wallet, price decimal.Decimal) entity.Holding {
	h := entity.Holding{
		Address:     w.Address,
		Network:     w.Network,
		Balance:     decimal.Zero,
		PriceUSD:    price,
		ValueUSD:    decimal.Zero,
		LastUpdated: s.now().UTC(),
	}
	fail := func(err error) entity.Holding {
		s.logger.Error("Failed to fetch holding", "address", w.Address, "network", w.Network, "error", err)
		s.metrics.RecordHolding(w.Network, "failed")
		h.Error = err.Error()
		return h
	}

	def, ok := s.networkProvider.GetNetworkDefinitionByName(w.Network)
	if !ok {
		return fail(fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, w.Network))
	}
	h.Asset = def.NativeSymbol

	client, err := s.clientProvider.GetClient(def)
	if err != nil {
		return fail(err)
	}
	wei, err := client.GetNativeBalance(ctx, w.Address)
	if err != nil {
		return fail(err)
	}
	h.Balance = utils.ToDecimal(wei, def.Decimals)
	h.ValueUSD = h.Balance.Mul(price)

	if s.explorer != nil {
		txs, err := s.explorer.ForChain(def.ChainID).GetTransactions(ctx, w.Address, entity.HistoryQuery{})
		if err != nil {
			s.logger.Warn("Transaction count unavailable", "address", w.Address, "network", w.Network, "error", err)
		} else {
			h.TxCount = len(txs)
		}
	}

	s.metrics.RecordHolding(w.Network, "ok")
	return h
}

// TransactionHistory returns the address history on network limited to the last days days; 0 means all.
func (s *PortfolioService) TransactionHistory(ctx context.Context, address, network string, days int) ([]entity.Transaction, error) {
	if !utils.IsValidAddress(address) {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidAddress, address)
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: days must not be negative, got %d", entity.ErrInvalidInput, days)
	}
	def, ok := s.networkProvider.GetNetworkDefinitionByName(network)
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownNetwork, network)
	}
	if s.explorer == nil {
		return nil, fmt.Errorf("transaction history for %s: no explorer client configured", network)
	}

	txs, err := s.explorer.ForChain(def.ChainID).GetTransactions(ctx, address, entity.HistoryQuery{Sort: entity.SortDesc})
	if err != nil {
		return nil, err
	}
	if days == 0 {
		return txs, nil
	}

	cutoff := s.now().Add(-time.Duration(days) * 24 * time.Hour)
	filtered := make([]entity.Transaction, 0, len(txs))
	for _, tx := range txs {
		if !tx.Timestamp.Before(cutoff) {
			filtered = append(filtered, tx)
		}
	}
	return filtered, nil
}
