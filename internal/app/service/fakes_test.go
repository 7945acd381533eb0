package service

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	addrA  = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	addrB  = "0x00000000219ab540356cBB839Cbe05303d7705Fa"
	txHash = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

func quietLogger() port.Logger {
	return logger.NewAdapter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func ether(s string) *big.Int {
	return decimal.RequireFromString(s).Shift(18).BigInt()
}

// stubExplorer is an in-memory port.ExplorerClient keyed by lower-cased address.
type stubExplorer struct {
	mu       sync.Mutex
	calls    int
	chainIDs []uint64

	txs       map[string]*entity.Transaction
	histories map[string][]entity.Transaction
	balances  map[string]*big.Int
	ethPrice  decimal.Decimal
	prices    []entity.PricePoint

	historyErr error
	balanceErr error
	priceErr   error

	lastQuery entity.HistoryQuery
}

func newStubExplorer() *stubExplorer {
	return &stubExplorer{
		txs:       make(map[string]*entity.Transaction),
		histories: make(map[string][]entity.Transaction),
		balances:  make(map[string]*big.Int),
	}
}

func (s *stubExplorer) hit() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *stubExplorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubExplorer) GetTransaction(_ context.Context, hash string) (*entity.Transaction, error) {
	s.hit()
	tx, ok := s.txs[strings.ToLower(hash)]
	if !ok {
		return nil, entity.ErrNotFound
	}
	return tx, nil
}

func (s *stubExplorer) GetTransactions(_ context.Context, address string, q entity.HistoryQuery) ([]entity.Transaction, error) {
	s.hit()
	s.mu.Lock()
	s.lastQuery = q
	s.mu.Unlock()
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return s.histories[strings.ToLower(address)], nil
}

func (s *stubExplorer) GetBalance(_ context.Context, address string) (*big.Int, error) {
	s.hit()
	if s.balanceErr != nil {
		return nil, s.balanceErr
	}
	if b, ok := s.balances[strings.ToLower(address)]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (s *stubExplorer) GetETHPriceUSD(context.Context) (decimal.Decimal, error) {
	s.hit()
	if s.priceErr != nil {
		return decimal.Zero, s.priceErr
	}
	return s.ethPrice, nil
}

func (s *stubExplorer) GetDailyPrices(_ context.Context, start, end time.Time) ([]entity.PricePoint, error) {
	s.hit()
	var out []entity.PricePoint
	for _, p := range s.prices {
		if !p.Time.Before(start) && !p.Time.After(end) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubExplorer) ForChain(chainID uint64) port.ExplorerClient {
	s.mu.Lock()
	s.chainIDs = append(s.chainIDs, chainID)
	s.mu.Unlock()
	return s
}

// stubNetworks serves a fixed set of definitions.
type stubNetworks map[string]entity.NetworkDefinition

func (n stubNetworks) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	out := make([]entity.NetworkDefinition, 0, len(n))
	for _, d := range n {
		out = append(out, d)
	}
	return out
}

func (n stubNetworks) GetNetworkDefinitionByName(name string) (entity.NetworkDefinition, bool) {
	d, ok := n[strings.ToLower(name)]
	return d, ok
}

func testNetworks() stubNetworks {
	return stubNetworks{
		"ethereum": {ChainID: 1, Name: "Ethereum", Identifier: "ethereum", NativeSymbol: "ETH", Decimals: 18, BalanceSource: entity.BalanceSourceExplorer},
		"polygon":  {ChainID: 137, Name: "Polygon", Identifier: "polygon", NativeSymbol: "POL", Decimals: 18, BalanceSource: entity.BalanceSourceRPC},
	}
}

// stubBalances returns balances keyed by "network:lower(address)".
type stubBalances struct {
	balances map[string]*big.Int
	failures map[string]error
}

type stubBalanceClient struct {
	def entity.NetworkDefinition
	p   *stubBalances
}

func (c stubBalanceClient) GetNativeBalance(_ context.Context, address string) (*big.Int, error) {
	key := c.def.Identifier + ":" + strings.ToLower(address)
	if err, ok := c.p.failures[key]; ok {
		return nil, err
	}
	if b, ok := c.p.balances[key]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (c stubBalanceClient) Definition() entity.NetworkDefinition { return c.def }

func (p *stubBalances) GetClient(def entity.NetworkDefinition) (port.BalanceClient, error) {
	return stubBalanceClient{def: def, p: p}, nil
}

// stubPrices returns a fixed USD price per network identifier.
type stubPrices map[string]decimal.Decimal

func (p stubPrices) NativePriceUSD(_ context.Context, network entity.NetworkDefinition) (decimal.Decimal, error) {
	price, ok := p[network.Identifier]
	if !ok {
		return decimal.Zero, entity.ErrNotFound
	}
	return price, nil
}

// stubDEX returns canned pairs and counts calls.
type stubDEX struct {
	pairs []entity.PairData
	err   error
	calls int
}

func (d *stubDEX) GetTokenPairsByAddresses(context.Context, string, []string) ([]entity.PairData, error) {
	d.calls++
	return d.pairs, d.err
}

// recordingRenderer captures what the visualization service passes on.
type recordingRenderer struct {
	kind       string
	output     string
	volume     []entity.DailyVolume
	prices     []entity.PricePoint
	allocation map[string]float64
	txs        []entity.Transaction
	dashboard  entity.DashboardData
	err        error
}

func (r *recordingRenderer) TransactionVolume(days []entity.DailyVolume, output string) error {
	r.kind, r.output, r.volume = ChartVolume, output, days
	return r.err
}

func (r *recordingRenderer) PriceEvolution(points []entity.PricePoint, _, output string) error {
	r.kind, r.output, r.prices = ChartPrice, output, points
	return r.err
}

func (r *recordingRenderer) Allocation(values map[string]float64, output string) error {
	r.kind, r.output, r.allocation = ChartAllocation, output, values
	return r.err
}

func (r *recordingRenderer) GasUsage(txs []entity.Transaction, output string) error {
	r.kind, r.output, r.txs = ChartGas, output, txs
	return r.err
}

func (r *recordingRenderer) Dashboard(data entity.DashboardData, output string) error {
	r.kind, r.output, r.dashboard = ChartDashboard, output, data
	return r.err
}
