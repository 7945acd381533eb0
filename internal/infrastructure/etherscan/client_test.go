package etherscan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	testHash    = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

type fakeExplorer struct {
	calls int32
	last  url.Values
}

func newFakeExplorer(t *testing.T, handle func(q url.Values) (int, string)) (*fakeExplorer, *httptest.Server) {
	t.Helper()
	f := &fakeExplorer{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.calls, 1)
		f.last = r.URL.Query()
		status, body := handle(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func newTestClient(srv *httptest.Server, ttl time.Duration) *Client {
	return NewClient(Config{
		BaseURL:  srv.URL,
		APIKey:   "test-key",
		Timeout:  5 * time.Second,
		CacheTTL: ttl,
	}, zap.NewNop(), nil)
}

const txListBody = `{"status":"1","message":"OK","result":[
 {"blockNumber":"14923678","timeStamp":"1654646411","hash":"0xaaa","nonce":"5","from":"0x1","to":"0x2",
  "value":"1500000000000000000","gas":"21000","gasPrice":"30000000000","gasUsed":"21000","isError":"0",
  "txreceipt_status":"1","contractAddress":"","methodId":"0x"},
 {"blockNumber":"14923700","timeStamp":"1654646700","hash":"0xbbb","nonce":"6","from":"0x1","to":"0x3",
  "value":"0","gas":"60000","gasPrice":"31000000000","gasUsed":"45000","isError":"1",
  "txreceipt_status":"0","contractAddress":"","methodId":"0xa9059cbb"}
]}`

func TestGetTransactionsParsesRows(t *testing.T) {
	fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		return http.StatusOK, txListBody
	})
	c := newTestClient(srv, 0)

	txs, err := c.GetTransactions(context.Background(), testAddress, entity.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, "account", fake.last.Get("module"))
	assert.Equal(t, "txlist", fake.last.Get("action"))
	assert.Equal(t, "0", fake.last.Get("startblock"))
	assert.Equal(t, "99999999", fake.last.Get("endblock"))
	assert.Equal(t, "asc", fake.last.Get("sort"))
	assert.Equal(t, "test-key", fake.last.Get("apikey"))
	assert.Equal(t, "1", fake.last.Get("chainid"))

	first := txs[0]
	assert.Equal(t, "0xaaa", first.Hash)
	assert.Equal(t, "1.5", first.Value.String())
	assert.Equal(t, "1500000000000000000", first.ValueWei.String())
	assert.Equal(t, uint64(21000), first.GasUsed)
	assert.Equal(t, "30000000000", first.GasPrice.String())
	assert.Equal(t, uint64(14923678), first.BlockNumber)
	assert.Equal(t, time.Unix(1654646411, 0).UTC(), first.Timestamp)
	assert.False(t, first.IsError)

	assert.True(t, txs[1].IsError)
	assert.Equal(t, "0xa9059cbb", txs[1].MethodID)
}

func TestGetTransactionsNoTransactionsIsEmpty(t *testing.T) {
	_, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"status":"0","message":"No transactions found","result":[]}`
	})
	c := newTestClient(srv, 0)

	txs, err := c.GetTransactions(context.Background(), testAddress, entity.HistoryQuery{})
	require.NoError(t, err)
	assert.NotNil(t, txs)
	assert.Empty(t, txs)
}

func TestAccountErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "api error",
			status: http.StatusOK,
			body:   `{"status":"0","message":"NOTOK","result":"Invalid API Key"}`,
			check: func(t *testing.T, err error) {
				var apiErr *entity.APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, "NOTOK", apiErr.Message)
				assert.Equal(t, "Invalid API Key", apiErr.Result)
				assert.False(t, errors.Is(err, entity.ErrRequestFailed))
			},
		},
		{
			name:   "http status",
			status: http.StatusInternalServerError,
			body:   `oops`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, entity.ErrRequestFailed)
			},
		},
		{
			name:   "malformed json",
			status: http.StatusOK,
			body:   `{"status":`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, entity.ErrRequestFailed)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
				return tt.status, tt.body
			})
			c := newTestClient(srv, 0)

			_, err := c.GetBalance(context.Background(), testAddress)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestGetTransactionMergesReceiptAndBlock(t *testing.T) {
	fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		assert.Equal(t, "proxy", q.Get("module"))
		switch q.Get("action") {
		case "eth_getTransactionByHash":
			return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{
				"hash":"` + testHash + `","from":"0x1","to":"0x2","value":"0xde0b6b3a7640000",
				"gas":"0x5208","gasPrice":"0x6fc23ac00","blockNumber":"0xe3b8de","nonce":"0x5","input":"0x"}}`
		case "eth_getTransactionReceipt":
			return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"gasUsed":"0x5208","status":"0x1","contractAddress":null}}`
		case "eth_getBlockByNumber":
			assert.Equal(t, "0xe3b8de", q.Get("tag"))
			return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":{"number":"0xe3b8de","timestamp":"0x62a0a38b"}}`
		}
		return http.StatusNotFound, ""
	})
	c := newTestClient(srv, 0)

	tx, err := c.GetTransaction(context.Background(), testHash)
	require.NoError(t, err)

	assert.Equal(t, testHash, tx.Hash)
	assert.Equal(t, "1", tx.Value.String())
	assert.Equal(t, time.Unix(0x62a0a38b, 0).UTC(), tx.Timestamp)
	assert.Equal(t, uint64(21000), tx.GasUsed)
	assert.Equal(t, uint64(0xe3b8de), tx.BlockNumber)
	assert.Equal(t, "30000000000", tx.GasPrice.String())
	assert.Equal(t, "1", tx.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.calls))
}

func TestGetTransactionNullResultIsNotFound(t *testing.T) {
	_, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"result":null}`
	})
	c := newTestClient(srv, 0)

	_, err := c.GetTransaction(context.Background(), testHash)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestGetTransactionRPCError(t *testing.T) {
	_, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"jsonrpc":"2.0","id":1,"error":{"code":-32602,"message":"invalid argument 0"}}`
	})
	c := newTestClient(srv, 0)

	_, err := c.GetTransaction(context.Background(), testHash)
	var apiErr *entity.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid argument 0", apiErr.Message)
}

func TestResponseCache(t *testing.T) {
	body := `{"status":"1","message":"OK","result":"2500000000000000000"}`

	t.Run("enabled", func(t *testing.T) {
		fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) { return http.StatusOK, body })
		c := newTestClient(srv, time.Minute)

		for i := 0; i < 3; i++ {
			wei, err := c.GetBalance(context.Background(), testAddress)
			require.NoError(t, err)
			assert.Equal(t, "2500000000000000000", wei.String())
		}
		assert.Equal(t, int32(1), atomic.LoadInt32(&fake.calls))
	})

	t.Run("disabled", func(t *testing.T) {
		fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) { return http.StatusOK, body })
		c := newTestClient(srv, -1)

		for i := 0; i < 3; i++ {
			_, err := c.GetBalance(context.Background(), testAddress)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(3), atomic.LoadInt32(&fake.calls))
	})

	t.Run("errors are not cached", func(t *testing.T) {
		fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
			return http.StatusOK, `{"status":"0","message":"NOTOK","result":"Max rate limit reached"}`
		})
		c := newTestClient(srv, time.Minute)

		for i := 0; i < 2; i++ {
			_, err := c.GetBalance(context.Background(), testAddress)
			require.Error(t, err)
		}
		assert.Equal(t, int32(2), atomic.LoadInt32(&fake.calls))
	})
}

func TestChainIDIsAlwaysSent(t *testing.T) {
	fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"status":"1","message":"OK","result":"1"}`
	})
	c := newTestClient(srv, -1)

	tests := []struct {
		name   string
		client port.ExplorerClient
		want   string
	}{
		{"default client is mainnet", c, "1"},
		{"zero chain id is mainnet", c.ForChain(0), "1"},
		{"ethereum", c.ForChain(1), "1"},
		{"polygon", c.ForChain(137), "137"},
		{"base", c.ForChain(8453), "8453"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.client.GetBalance(context.Background(), testAddress)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fake.last.Get("chainid"))
		})
	}
}

func TestForChainKeepsCachesApart(t *testing.T) {
	fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		return http.StatusOK, `{"status":"1","message":"OK","result":"` + q.Get("chainid") + `"}`
	})
	c := newTestClient(srv, time.Minute)

	mainnet, err := c.GetBalance(context.Background(), testAddress)
	require.NoError(t, err)
	polygon, err := c.ForChain(137).GetBalance(context.Background(), testAddress)
	require.NoError(t, err)

	assert.Equal(t, "1", mainnet.String())
	assert.Equal(t, "137", polygon.String())
	assert.Equal(t, int32(2), atomic.LoadInt32(&fake.calls))
}

func TestRateLimit(t *testing.T) {
	body := `{"status":"1","message":"OK","result":"1"}`

	t.Run("spaces calls", func(t *testing.T) {
		fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) { return http.StatusOK, body })
		c := NewClient(Config{BaseURL: srv.URL, RateLimit: 2, CacheTTL: -1}, zap.NewNop(), nil)

		start := time.Now()
		for i := 0; i < 5; i++ {
			_, err := c.GetBalance(context.Background(), testAddress)
			require.NoError(t, err)
		}
		// burst of 2, then one call every 500ms
		assert.GreaterOrEqual(t, time.Since(start), 1400*time.Millisecond)
		assert.Equal(t, int32(5), atomic.LoadInt32(&fake.calls))
	})

	t.Run("deadline shorter than wait", func(t *testing.T) {
		fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) { return http.StatusOK, body })
		c := NewClient(Config{BaseURL: srv.URL, RateLimit: 1, CacheTTL: -1}, zap.NewNop(), nil)

		_, err := c.GetBalance(context.Background(), testAddress)
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = c.GetBalance(ctx, testAddress)
		assert.ErrorIs(t, err, entity.ErrRequestFailed)
		assert.Equal(t, int32(1), atomic.LoadInt32(&fake.calls))
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) { return http.StatusOK, body })
		c := NewClient(Config{BaseURL: srv.URL, RateLimit: 1, CacheTTL: -1}, zap.NewNop(), nil)

		_, err := c.GetBalance(context.Background(), testAddress)
		require.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(50*time.Millisecond, cancel)

		start := time.Now()
		_, err = c.GetBalance(ctx, testAddress)
		assert.ErrorIs(t, err, entity.ErrRequestFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Less(t, time.Since(start), 900*time.Millisecond)
		assert.Equal(t, int32(1), atomic.LoadInt32(&fake.calls))
	})
}

func TestPrices(t *testing.T) {
	_, srv := newFakeExplorer(t, func(q url.Values) (int, string) {
		switch q.Get("action") {
		case "ethprice":
			return http.StatusOK, `{"status":"1","message":"OK","result":{"ethbtc":"0.05","ethbtc_timestamp":"1","ethusd":"3012.55","ethusd_timestamp":"1"}}`
		case "ethdailyprice":
			return http.StatusOK, `{"status":"1","message":"OK","result":[
				{"UTCDate":"2024-01-01","unixTimeStamp":"1704067200","value":"2281.47"},
				{"UTCDate":"2024-01-02","unixTimeStamp":"1704153600","value":"2352.05"}]}`
		}
		return http.StatusNotFound, ""
	})
	c := newTestClient(srv, 0)

	price, err := c.GetETHPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3012.55", price.String())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points, err := c.GetDailyPrices(context.Background(), start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, start, points[0].Time)
	assert.Equal(t, "2352.05", points[1].Price.String())
}

func TestCanceledContext(t *testing.T) {
	fake, srv := newFakeExplorer(t, func(q url.Values) (int, string) { return http.StatusOK, `{}` })
	c := newTestClient(srv, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.GetBalance(ctx, testAddress)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fake.calls))
}
