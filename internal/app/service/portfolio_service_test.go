package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"blockchain_analytics/internal/domain/entity"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addrC = "0xde0B295669a9FD93d5F28D9Ec85E40f4cb697BAe"

type portfolioFixture struct {
	svc      *PortfolioService
	explorer *stubExplorer
	balances *stubBalances
}

func newPortfolioFixture(t *testing.T) portfolioFixture {
	t.Helper()
	ex := newStubExplorer()
	bal := &stubBalances{balances: map[string]*big.Int{}, failures: map[string]error{}}
	prices := stubPrices{"ethereum": decimal.NewFromInt(2000), "polygon": decimal.RequireFromString("0.5")}
	svc := NewPortfolioService(testNetworks(), bal, ex, prices, quietLogger(), nil, "usd", 2)
	return portfolioFixture{svc: svc, explorer: ex, balances: bal}
}

type staticWallets []entity.Wallet

func (w staticWallets) GetWallets() ([]entity.Wallet, error) { return w, nil }

func TestAddAddress(t *testing.T) {
	f := newPortfolioFixture(t)

	require.NoError(t, f.svc.AddAddress(addrA, "Ethereum"))
	require.NoError(t, f.svc.AddAddress(addrA, "polygon"))

	err := f.svc.AddAddress(strings.ToLower(addrA), "ETHEREUM")
	assert.ErrorIs(t, err, entity.ErrDuplicateAddress)

	err = f.svc.AddAddress("0x1234", "ethereum")
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)

	err = f.svc.AddAddress(addrB, "solana")
	assert.ErrorIs(t, err, entity.ErrUnknownNetwork)
	assert.True(t, entity.IsInvalidInput(err))

	assert.Equal(t, map[string][]string{
		"ethereum": {addrA},
		"polygon":  {addrA},
	}, f.svc.ListAddresses(""))
}

func TestRemoveAndListAddresses(t *testing.T) {
	f := newPortfolioFixture(t)
	require.NoError(t, f.svc.AddAddress(addrA, "ethereum"))
	require.NoError(t, f.svc.AddAddress(addrB, "ethereum"))
	require.NoError(t, f.svc.AddAddress(addrC, "polygon"))

	assert.Equal(t, map[string][]string{"polygon": {addrC}}, f.svc.ListAddresses("Polygon"))

	assert.True(t, f.svc.RemoveAddress(strings.ToLower(addrA), "ethereum"))
	assert.False(t, f.svc.RemoveAddress(addrA, "ethereum"))
	assert.True(t, f.svc.RemoveAddress(addrC, "polygon"))

	listed := f.svc.ListAddresses("")
	assert.Equal(t, map[string][]string{"ethereum": {addrB}}, listed)

	listed["ethereum"][0] = "mutated"
	assert.Equal(t, addrB, f.svc.ListAddresses("ethereum")["ethereum"][0])
}

func TestLoadWalletsSkipsInvalid(t *testing.T) {
	f := newPortfolioFixture(t)
	err := f.svc.LoadWallets(staticWallets{
		{Address: addrA, Network: "ethereum"},
		{Address: "nope", Network: "ethereum"},
		{Address: addrA, Network: "ethereum"},
		{Address: addrB, Network: "polygon"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"ethereum": {addrA},
		"polygon":  {addrB},
	}, f.svc.ListAddresses(""))
}

func TestSummarySumsBalances(t *testing.T) {
	f := newPortfolioFixture(t)
	f.balances.balances["ethereum:"+strings.ToLower(addrA)] = ether("1.5")
	f.balances.balances["ethereum:"+strings.ToLower(addrB)] = ether("0.25")
	f.balances.balances["polygon:"+strings.ToLower(addrC)] = ether("100")
	f.explorer.histories[strings.ToLower(addrA)] = []entity.Transaction{{Hash: "0x01"}, {Hash: "0x02"}}

	require.NoError(t, f.svc.AddAddress(addrA, "ethereum"))
	require.NoError(t, f.svc.AddAddress(addrB, "ethereum"))
	require.NoError(t, f.svc.AddAddress(addrC, "polygon"))

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 3)

	assert.Equal(t, "101.75", summary.TotalBalance.String())
	assert.Equal(t, "3550", summary.TotalValueUSD.String())
	assert.Equal(t, "USD", summary.BaseCurrency)
	assert.Empty(t, summary.Failed())

	first := summary.Holdings[0]
	assert.Equal(t, addrA, first.Address)
	assert.Equal(t, "ethereum", first.Network)
	assert.Equal(t, "ETH", first.Asset)
	assert.Equal(t, 2, first.TxCount)
	assert.Equal(t, "3000", first.ValueUSD.String())
	assert.Equal(t, "POL", summary.Holdings[2].Asset)
	assert.Contains(t, f.explorer.chainIDs, uint64(137))
}

func TestSummaryRecordsPerAddressFailure(t *testing.T) {
	f := newPortfolioFixture(t)
	f.balances.balances["ethereum:"+strings.ToLower(addrA)] = ether("2")
	f.balances.failures["ethereum:"+strings.ToLower(addrB)] = errors.Join(entity.ErrRequestFailed, errors.New("timeout"))

	require.NoError(t, f.svc.AddAddress(addrA, "ethereum"))
	require.NoError(t, f.svc.AddAddress(addrB, "ethereum"))

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)

	failed := summary.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, addrB, failed[0].Address)
	assert.True(t, failed[0].Balance.IsZero())
	assert.Contains(t, failed[0].Error, "timeout")
	assert.Equal(t, "2", summary.TotalBalance.String())
}

func TestSummaryToleratesHistoryAndPriceFailures(t *testing.T) {
	f := newPortfolioFixture(t)
	f.svc.priceSvc = stubPrices{}
	f.explorer.historyErr = entity.ErrRequestFailed
	f.balances.balances["ethereum:"+strings.ToLower(addrA)] = ether("1")
	require.NoError(t, f.svc.AddAddress(addrA, "ethereum"))

	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Holdings, 1)
	assert.Empty(t, summary.Holdings[0].Error)
	assert.Equal(t, "1", summary.TotalBalance.String())
	assert.True(t, summary.TotalValueUSD.IsZero())
}

func TestSummaryEmptyPortfolio(t *testing.T) {
	f := newPortfolioFixture(t)
	summary, err := f.svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Empty(t, summary.Holdings)
	assert.True(t, summary.TotalBalance.IsZero())
}

func TestSummaryCanceledContext(t *testing.T) {
	f := newPortfolioFixture(t)
	require.NoError(t, f.svc.AddAddress(addrA, "ethereum"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Summary(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransactionHistoryFiltersByDays(t *testing.T) {
	f := newPortfolioFixture(t)
	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.explorer.histories[strings.ToLower(addrA)] = []entity.Transaction{
		{Hash: "0x03", Timestamp: now.Add(-time.Hour)},
		{Hash: "0x02", Timestamp: now.AddDate(0, 0, -5)},
		{Hash: "0x01", Timestamp: now.AddDate(0, 0, -40)},
	}

	recent, err := f.svc.TransactionHistory(context.Background(), addrA, "ethereum", 7)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "0x03", recent[0].Hash)
	assert.Equal(t, entity.SortDesc, f.explorer.lastQuery.Sort)

	all, err := f.svc.TransactionHistory(context.Background(), addrA, "ethereum", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.svc.TransactionHistory(context.Background(), addrA, "ethereum", -1)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = f.svc.TransactionHistory(context.Background(), "0xbad", "ethereum", 0)
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)

	_, err = f.svc.TransactionHistory(context.Background(), addrA, "tron", 0)
	assert.ErrorIs(t, err, entity.ErrUnknownNetwork)
}
