package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"

	ethSymbol = "ETH"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

// TokenPriceService implements port.PriceService.
// Prices come from DEX Screener pairs of the wrapped native token; ETH-native networks fall back to the explorer quote.
type TokenPriceService struct {
	dexscreenerClient port.DEXScreenerClient
	explorer          port.ExplorerClient
	cache             *cache.Cache
	logger            port.Logger
}

// NewTokenPriceService creates the price service. A negative ttl disables caching; explorer may be nil.
func NewTokenPriceService(dsc port.DEXScreenerClient, explorer port.ExplorerClient, ttl time.Duration, l port.Logger) *TokenPriceService {
	s := &TokenPriceService{
		dexscreenerClient: dsc,
		explorer:          explorer,
		logger:            l,
	}
	if ttl >= 0 {
		s.cache = cache.New(ttl, 2*ttl+time.Minute)
	}
	return s
}

// NativePriceUSD returns the USD price of network's native asset.
func (s *TokenPriceService) NativePriceUSD(ctx context.Context, network entity.NetworkDefinition) (decimal.Decimal, error) {
	key := strings.ToLower(network.Identifier)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return v.(decimal.Decimal), nil
		}
	}

	price, err := s.fetchNativePrice(ctx, network)
	if err != nil {
		return decimal.Zero, err
	}
	if s.cache != nil {
		s.cache.SetDefault(key, price)
	}
	s.logger.Info("Native token price cached/updated", "network", network.Identifier, "symbol", network.NativeSymbol, "price", price.String())
	return price, nil
}

func (s *TokenPriceService) fetchNativePrice(ctx context.Context, network entity.NetworkDefinition) (decimal.Decimal, error) {
	var dexErr error
	if s.dexscreenerClient != nil && network.DEXScreenerChainID != "" && network.WrappedNativeTokenAddress != "" {
		price, err := s.priceFromDEXScreener(ctx, network)
		if err == nil {
			return price, nil
		}
		dexErr = err
		s.logger.Warn("DEX Screener price unavailable", "network", network.Identifier, "error", err)
	}

	if s.explorer != nil && strings.EqualFold(network.NativeSymbol, ethSymbol) {
		price, err := s.explorer.GetETHPriceUSD(ctx)
		if err != nil {
			return decimal.Zero, fmt.Errorf("explorer eth price for %s: %w", network.Identifier, err)
		}
		return price, nil
	}

	if dexErr != nil {
		return decimal.Zero, dexErr
	}
	return decimal.Zero, fmt.Errorf("no price source for %s (%s): %w", network.Identifier, network.NativeSymbol, entity.ErrNotFound)
}

func (s *TokenPriceService) priceFromDEXScreener(ctx context.Context, network entity.NetworkDefinition) (decimal.Decimal, error) {
	pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(ctx, network.DEXScreenerChainID, []string{network.WrappedNativeTokenAddress})
	if err != nil {
		return decimal.Zero, err
	}
	best := s.selectBestPriceFromPairs(pairs, network.WrappedNativeTokenAddress)
	if best == nil {
		return decimal.Zero, fmt.Errorf("no priced pair for %s on %s: %w", network.WrappedNativeTokenAddress, network.DEXScreenerChainID, entity.ErrNotFound)
	}
	price, err := decimal.NewFromString(best.PriceUsd)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: price %q from pair %s: %v", entity.ErrRequestFailed, best.PriceUsd, best.PairAddress, err)
	}
	return price, nil
}

// selectBestPriceFromPairs prefers the stablecoin-quoted pair with the most USD liquidity,
// then any pair with the most liquidity. Pairs without a price are ignored.
func (s *TokenPriceService) selectBestPriceFromPairs(pairs []entity.PairData, baseTokenAddress string) *entity.PairData {
	var bestOverallPair *entity.PairData
	var bestStablecoinPair *entity.PairData
	liquidity := func(p *entity.PairData) float64 {
		return utils.SafeDerefFloat64(p.Liquidity, func(l entity.DEXLiquidity) float64 { return l.Usd })
	}

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		if _, isStablecoin := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; isStablecoin {
			if bestStablecoinPair == nil || liquidity(pair) > liquidity(bestStablecoinPair) {
				bestStablecoinPair = pair
			}
		}
		if bestOverallPair == nil || liquidity(pair) > liquidity(bestOverallPair) {
			bestOverallPair = pair
		}
	}

	best := bestStablecoinPair
	if best == nil {
		best = bestOverallPair
	}
	if best == nil {
		s.logger.Warn("No suitable price found from pairs", "baseTokenAddress", baseTokenAddress, "evaluatedPairCount", len(pairs))
		return nil
	}
	s.logger.Debug("Selected best price pair",
		"baseTokenAddress", baseTokenAddress,
		"pairAddress", best.PairAddress,
		"priceUsd", best.PriceUsd,
		"liquidityUsd", liquidity(best),
		"quoteToken", best.QuoteToken.Symbol)
	return best
}
