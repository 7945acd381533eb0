package entity

// BalanceSource selects where native balances for a network are read from.
type BalanceSource string

const (
	// BalanceSourceExplorer reads balances through the block explorer API.
	BalanceSourceExplorer BalanceSource = "explorer"
	// BalanceSourceRPC reads balances with eth_getBalance against the network's RPC nodes.
	BalanceSourceRPC BalanceSource = "rpc"
)

// NetworkDefinition holds the configuration for a specific blockchain network.
// This structure is defined at the domain level to be used across application and infrastructure layers.
type NetworkDefinition struct {
	ChainID                   uint64        `json:"chainId" yaml:"chainId"`
	Name                      string        `json:"name" yaml:"name"`
	Identifier                string        `json:"identifier" yaml:"identifier"` // e.g. "ethereum", "polygon"
	NativeSymbol              string        `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals                  int32         `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL             string        `json:"primaryRpcUrl" yaml:"primaryRpcUrl"`
	FallbackRPCURLs           []string      `json:"fallbackRpcUrls" yaml:"fallbackRpcUrls"`
	BlockExplorerURL          string        `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`
	DEXScreenerChainID        string        `json:"dexScreenerChainId,omitempty" yaml:"dexScreenerChainId,omitempty"`
	WrappedNativeTokenAddress string        `json:"wrappedNativeTokenAddress,omitempty" yaml:"wrappedNativeTokenAddress,omitempty"`
	BalanceSource             BalanceSource `json:"balanceSource" yaml:"balanceSource"`
}

// RPCURLs returns the primary RPC URL followed by the fallbacks, skipping empty entries.
func (n NetworkDefinition) RPCURLs() []string {
	urls := make([]string, 0, 1+len(n.FallbackRPCURLs))
	if n.PrimaryRPCURL != "" {
		urls = append(urls, n.PrimaryRPCURL)
	}
	for _, u := range n.FallbackRPCURLs {
		if u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
