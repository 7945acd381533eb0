package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"blockchain_analytics/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const weth = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

func TestGetTokenPairsByAddresses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "bare array",
			body: `[{"chainId":"ethereum","dexId":"uniswap","baseToken":{"address":"` + weth + `","symbol":"WETH"},
				"quoteToken":{"symbol":"USDC"},"priceUsd":"3001.5","liquidity":{"usd":1000000}}]`,
		},
		{
			name: "wrapped",
			body: `{"schemaVersion":"1.0.0","pairs":[{"chainId":"ethereum","dexId":"uniswap","baseToken":{"address":"` + weth + `","symbol":"WETH"},
				"quoteToken":{"symbol":"USDC"},"priceUsd":"3001.5","liquidity":{"usd":1000000}}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewDEXScreenerClient(srv.URL, 5*time.Second, zap.NewNop())
			pairs, err := c.GetTokenPairsByAddresses(context.Background(), "ethereum", []string{weth})
			require.NoError(t, err)
			require.Len(t, pairs, 1)

			assert.Equal(t, "/tokens/v1/ethereum/"+weth, path)
			assert.Equal(t, "3001.5", pairs[0].PriceUsd)
			assert.Equal(t, "USDC", pairs[0].QuoteToken.Symbol)
			require.NotNil(t, pairs[0].Liquidity)
			assert.Equal(t, 1000000.0, pairs[0].Liquidity.Usd)
		})
	}
}

func TestGetTokenPairsByAddressesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "broken") {
			_, _ = w.Write([]byte(`{"pairs":`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewDEXScreenerClient(srv.URL, 5*time.Second, zap.NewNop())

	_, err := c.GetTokenPairsByAddresses(context.Background(), "ethereum", nil)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	tooMany := make([]string, MaxTokensPerRequest+1)
	_, err = c.GetTokenPairsByAddresses(context.Background(), "ethereum", tooMany)
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = c.GetTokenPairsByAddresses(context.Background(), "ethereum", []string{weth})
	assert.ErrorIs(t, err, entity.ErrRequestFailed)

	_, err = c.GetTokenPairsByAddresses(context.Background(), "broken", []string{weth})
	assert.ErrorIs(t, err, entity.ErrRequestFailed)
}
