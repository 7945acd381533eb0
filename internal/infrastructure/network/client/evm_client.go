package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EVMClient reads native balances from an EVM JSON-RPC node.
type EVMClient struct {
	ethClient      *ethclient.Client
	netDef         entity.NetworkDefinition
	rpcCallTimeout time.Duration
	metrics        *metrics.Metrics
}

// NewEVMClient dials the first reachable RPC URL of netDef, trying fallbacks in order.
func NewEVMClient(netDef entity.NetworkDefinition, connectionTimeout, rpcCallTimeout time.Duration, m *metrics.Metrics) (*EVMClient, error) {
	rpcURLs := netDef.RPCURLs()
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("network %s has no RPC URLs configured", netDef.Identifier)
	}

	var lastErr error
	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return &EVMClient{ethClient: client, netDef: netDef, rpcCallTimeout: rpcCallTimeout, metrics: m}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", netDef.Name, lastErr)
}

// GetNativeBalance implements port.BalanceClient.
func (c *EVMClient) GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error) {
	balances, err := c.GetNativeBalances(ctx, []string{walletAddress})
	if err != nil {
		return nil, err
	}
	return balances[walletAddress], nil
}

// GetNativeBalances fetches several balances in one JSON-RPC batch.
// Any per-address error fails the whole call.
func (c *EVMClient) GetNativeBalances(ctx context.Context, walletAddresses []string) (map[string]*big.Int, error) {
	out := make(map[string]*big.Int, len(walletAddresses))
	if len(walletAddresses) == 0 {
		return out, nil
	}

	batchElems := make([]rpc.BatchElem, len(walletAddresses))
	for i, addr := range walletAddresses {
		batchElems[i] = rpc.BatchElem{
			Method: "eth_getBalance",
			Args:   []interface{}{common.HexToAddress(addr), "latest"},
			Result: new(*hexutil.Big),
		}
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batchElems); err != nil {
		c.metrics.RecordRPCCall(c.netDef.Identifier, "failed")
		return nil, fmt.Errorf("%w: %s batch eth_getBalance: %v", entity.ErrRequestFailed, c.netDef.Identifier, err)
	}

	for i, elem := range batchElems {
		addr := walletAddresses[i]
		if elem.Error != nil {
			c.metrics.RecordRPCCall(c.netDef.Identifier, "failed")
			return nil, fmt.Errorf("%w: eth_getBalance %s on %s: %v", entity.ErrRequestFailed, addr, c.netDef.Identifier, elem.Error)
		}
		result, ok := elem.Result.(**hexutil.Big)
		if !ok || result == nil || *result == nil {
			out[addr] = new(big.Int)
			continue
		}
		out[addr] = (*big.Int)(*result)
	}
	c.metrics.RecordRPCCall(c.netDef.Identifier, "ok")
	return out, nil
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}
