package networkdefinition

import (
	"sort"
	"strings"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/config"
	"blockchain_analytics/internal/domain/entity"
)

// NetworkDefinitionProvider serves the built-in networks merged with config overrides.
type NetworkDefinitionProvider struct {
	logger port.Logger
	defs   map[string]entity.NetworkDefinition
}

// Built-in network definitions.
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.NetworkDefinition{
		ChainID:                   1,
		Name:                      "Ethereum Mainnet",
		Identifier:                "ethereum",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:          "https://etherscan.io",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
		BalanceSource:             entity.BalanceSourceExplorer,
	}
	BSC = entity.NetworkDefinition{
		ChainID:                   56,
		Name:                      "BNB Smart Chain",
		Identifier:                "bsc",
		NativeSymbol:              "BNB",
		Decimals:                  18,
		PrimaryRPCURL:             "https://1rpc.io/bnb",
		FallbackRPCURLs:           []string{"https://bsc-dataseed2.binance.org/", "https://bsc.publicnode.com"},
		BlockExplorerURL:          "https://bscscan.com",
		DEXScreenerChainID:        "bsc",
		WrappedNativeTokenAddress: "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", // WBNB
		BalanceSource:             entity.BalanceSourceRPC,
	}
	Polygon = entity.NetworkDefinition{
		ChainID:                   137,
		Name:                      "Polygon PoS",
		Identifier:                "polygon",
		NativeSymbol:              "POL",
		Decimals:                  18,
		PrimaryRPCURL:             "https://polygon-rpc.com/",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:          "https://polygonscan.com",
		DEXScreenerChainID:        "polygon",
		WrappedNativeTokenAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", // WPOL
		BalanceSource:             entity.BalanceSourceRPC,
	}
	Arbitrum = entity.NetworkDefinition{
		ChainID:                   42161,
		Name:                      "Arbitrum One",
		Identifier:                "arbitrum",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:           []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:          "https://arbiscan.io",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", // WETH on Arbitrum
		BalanceSource:             entity.BalanceSourceRPC,
	}
	Optimism = entity.NetworkDefinition{
		ChainID:                   10,
		Name:                      "OP Mainnet",
		Identifier:                "optimism",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://optimism.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/optimism"},
		BlockExplorerURL:          "https://optimistic.etherscan.io",
		DEXScreenerChainID:        "optimism",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on Optimism
		BalanceSource:             entity.BalanceSourceRPC,
	}
	Base = entity.NetworkDefinition{
		ChainID:                   8453,
		Name:                      "Base Mainnet",
		Identifier:                "base",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://1rpc.io/base",
		FallbackRPCURLs:           []string{"https://base.publicnode.com", "https://base.llamarpc.com"},
		BlockExplorerURL:          "https://basescan.org",
		DEXScreenerChainID:        "base",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on Base
		BalanceSource:             entity.BalanceSourceRPC,
	}
	Avalanche = entity.NetworkDefinition{
		ChainID:                   43114,
		Name:                      "Avalanche C-Chain",
		Identifier:                "avalanche",
		NativeSymbol:              "AVAX",
		Decimals:                  18,
		PrimaryRPCURL:             "https://api.avax.network/ext/bc/C/rpc",
		FallbackRPCURLs:           []string{"https://avalanche.public-rpc.com", "https://rpc.ankr.com/avalanche"},
		BlockExplorerURL:          "https://snowtrace.io",
		DEXScreenerChainID:        "avalanche",
		WrappedNativeTokenAddress: "0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7", // WAVAX
		BalanceSource:             entity.BalanceSourceRPC,
	}
)

func builtins() map[string]entity.NetworkDefinition {
	return map[string]entity.NetworkDefinition{
		Ethereum.Identifier:  Ethereum,
		BSC.Identifier:       BSC,
		Polygon.Identifier:   Polygon,
		Arbitrum.Identifier:  Arbitrum,
		Optimism.Identifier:  Optimism,
		Base.Identifier:      Base,
		Avalanche.Identifier: Avalanche,
	}
}

// NewNetworkDefinitionProvider merges config overrides onto the built-in networks.
// A node with an unknown identifier defines a new network.
func NewNetworkDefinitionProvider(log port.Logger, overrides []config.NetworkNode) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger: log,
		defs:   builtins(),
	}

	for _, node := range overrides {
		id := strings.ToLower(strings.TrimSpace(node.Identifier))
		def, known := p.defs[id]
		if !known {
			def = entity.NetworkDefinition{
				Identifier:    id,
				Name:          id,
				Decimals:      18,
				NativeSymbol:  "ETH",
				BalanceSource: entity.BalanceSourceRPC,
			}
			p.logger.Info("Registering custom network from config", "network", id)
		} else {
			p.logger.Debug("Applying config overrides to built-in network", "network", id)
		}
		p.defs[id] = applyOverride(def, node)
	}

	p.logger.Debug("Network definitions ready", "count", len(p.defs))
	return p
}

func applyOverride(def entity.NetworkDefinition, node config.NetworkNode) entity.NetworkDefinition {
	if node.Name != "" {
		def.Name = node.Name
	}
	if node.ChainID != 0 {
		def.ChainID = node.ChainID
	}
	if node.NativeSymbol != "" {
		def.NativeSymbol = node.NativeSymbol
	}
	if node.RPCURL != "" {
		def.PrimaryRPCURL = node.RPCURL
	}
	if len(node.FallbackRPCURLs) > 0 {
		def.FallbackRPCURLs = node.FallbackRPCURLs
	}
	if node.DEXScreenerChainID != "" {
		def.DEXScreenerChainID = node.DEXScreenerChainID
	}
	if node.WrappedNative != "" {
		def.WrappedNativeTokenAddress = node.WrappedNative
	}
	if node.BalanceSource != "" {
		def.BalanceSource = entity.BalanceSource(node.BalanceSource)
	}
	return def
}

// GetAllNetworkDefinitions returns every known network, sorted by chain id.
func (p *NetworkDefinitionProvider) GetAllNetworkDefinitions() []entity.NetworkDefinition {
	if p == nil {
		return []entity.NetworkDefinition{}
	}
	out := make([]entity.NetworkDefinition, 0, len(p.defs))
	for _, def := range p.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChainID < out[j].ChainID })
	return out
}

// GetNetworkDefinitionByName looks a network up by identifier, case-insensitively.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByName(identifier string) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	def, ok := p.defs[strings.ToLower(strings.TrimSpace(identifier))]
	return def, ok
}

// GetNetworkDefinitionByChainID returns the network with the given chain id.
func (p *NetworkDefinitionProvider) GetNetworkDefinitionByChainID(chainID uint64) (entity.NetworkDefinition, bool) {
	if p == nil {
		return entity.NetworkDefinition{}, false
	}
	for _, def := range p.defs {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.NetworkDefinition{}, false
}
