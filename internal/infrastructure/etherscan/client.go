package etherscan

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strconv"
	"strings"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/metrics"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultBaseURL = "https://api.etherscan.io/v2/api"
	defaultTimeout = 30 * time.Second
	mainnetChainID = 1

	statusOK     = "ok"
	statusFailed = "failed"
)

// Config configures the explorer client.
type Config struct {
	BaseURL   string
	APIKey    string
	ChainID   uint64 // sent as chainid, 0 means mainnet
	RateLimit int    // calls per second, <= 0 means unlimited
	Timeout   time.Duration
	// CacheTTL is the response cache lifetime. Negative disables caching, zero uses the cache default.
	CacheTTL time.Duration
}

// Client talks to an Etherscan-compatible HTTP API.
type Client struct {
	http    *fasthttp.Client
	cfg     Config
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewClient creates a client. Clients derived with ForChain share its limiter and cache.
func NewClient(cfg Config, logger *zap.Logger, m *metrics.Metrics) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit)
	}

	var c *cache.Cache
	if cfg.CacheTTL >= 0 {
		ttl := cfg.CacheTTL
		if ttl == 0 {
			ttl = cache.DefaultExpiration
		}
		c = cache.New(ttl, 2*time.Minute)
	}

	return &Client{
		http:    &fasthttp.Client{Name: "chainscope"},
		cfg:     cfg,
		limiter: limiter,
		cache:   c,
		logger:  logger.Named("EtherscanClient"),
		metrics: m,
	}
}

// ForChain returns a client for another chain on the same multi-chain API.
// A zero chain id means mainnet.
func (c *Client) ForChain(chainID uint64) port.ExplorerClient {
	if chainID == 0 {
		chainID = mainnetChainID
	}
	if chainID == c.chainID() {
		return c
	}
	clone := *c
	clone.cfg.ChainID = chainID
	clone.logger = c.logger.With(zap.Uint64("chainID", chainID))
	return &clone
}

func (c *Client) chainID() uint64 {
	if c.cfg.ChainID == 0 {
		return mainnetChainID
	}
	return c.cfg.ChainID
}

func (c *Client) params(module, action string) url.Values {
	v := url.Values{}
	v.Set("chainid", strconv.FormatUint(c.chainID(), 10))
	v.Set("module", module)
	v.Set("action", action)
	return v
}

// fetch performs one rate-limited GET. The returned body is a copy owned by the caller.
func (c *Client) fetch(ctx context.Context, params url.Values) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", entity.ErrRequestFailed, err)
	}
	c.metrics.RecordRateLimitWait(time.Since(waitStart))

	query := params.Encode()
	withKey := query
	if c.cfg.APIKey != "" {
		withKey += "&apikey=" + url.QueryEscape(c.cfg.APIKey)
	}
	requestURL := c.cfg.BaseURL + "?" + withKey

	c.logger.Debug("Requesting explorer API", zap.String("query", query))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	module, action := params.Get("module"), params.Get("action")
	start := time.Now()

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.http.DoDeadline(req, resp, deadline)
	} else {
		err = c.http.DoTimeout(req, resp, c.cfg.Timeout)
	}
	if err != nil {
		c.metrics.RecordExplorerRequest(module, action, statusFailed, time.Since(start))
		c.logger.Error("Explorer request failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("%w: %s/%s: %v", entity.ErrRequestFailed, module, action, err)
	}

	body := append([]byte(nil), resp.Body()...)
	if resp.StatusCode() != fasthttp.StatusOK {
		c.metrics.RecordExplorerRequest(module, action, statusFailed, time.Since(start))
		c.logger.Error("Explorer returned non-200 status",
			zap.String("query", query),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", body))
		return nil, fmt.Errorf("%w: %s/%s: http status %d", entity.ErrRequestFailed, module, action, resp.StatusCode())
	}

	c.metrics.RecordExplorerRequest(module, action, statusOK, time.Since(start))
	return body, nil
}

func (c *Client) cached(key string) (jsoniter.RawMessage, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	c.metrics.RecordCacheHit()
	return v.(jsoniter.RawMessage), true
}

func (c *Client) store(key string, result jsoniter.RawMessage) {
	if c.cache != nil {
		c.cache.SetDefault(key, result)
	}
}

// account performs an account/stats style call and returns the raw "result".
// ok is false when the explorer reported "No transactions found".
func (c *Client) account(ctx context.Context, params url.Values) (result jsoniter.RawMessage, ok bool, err error) {
	key := params.Encode()
	if raw, hit := c.cached(key); hit {
		return raw, raw != nil, nil
	}

	body, err := c.fetch(ctx, params)
	if err != nil {
		return nil, false, err
	}

	var env accountEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false, fmt.Errorf("%w: malformed response: %v", entity.ErrRequestFailed, err)
	}

	if env.Status == "0" {
		if strings.EqualFold(env.Message, noTransactionsMessage) {
			c.store(key, nil)
			return nil, false, nil
		}
		apiErr := &entity.APIError{Message: env.Message, Result: rawString(env.Result)}
		c.logger.Warn("Explorer reported an error",
			zap.String("action", params.Get("action")),
			zap.String("message", apiErr.Message),
			zap.String("result", apiErr.Result))
		return nil, false, apiErr
	}

	c.store(key, env.Result)
	return env.Result, true, nil
}

// proxy performs a module=proxy JSON-RPC passthrough call. A null result is entity.ErrNotFound.
func (c *Client) proxy(ctx context.Context, action string, args map[string]string) (jsoniter.RawMessage, error) {
	params := c.params("proxy", action)
	for k, v := range args {
		params.Set(k, v)
	}
	key := params.Encode()
	if raw, hit := c.cached(key); hit {
		return raw, nil
	}

	body, err := c.fetch(ctx, params)
	if err != nil {
		return nil, err
	}

	var env proxyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", entity.ErrRequestFailed, err)
	}
	if env.Error != nil {
		return nil, &entity.APIError{Message: env.Error.Message}
	}
	if env.Status == "0" {
		return nil, &entity.APIError{Message: env.Message, Result: rawString(env.Result)}
	}
	if isNull(env.Result) {
		return nil, fmt.Errorf("%s: %w", action, entity.ErrNotFound)
	}

	c.store(key, env.Result)
	return env.Result, nil
}

func isNull(raw jsoniter.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// rawString renders a result field that is usually a JSON string.
func rawString(raw jsoniter.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}

// GetTransaction fetches a transaction with its receipt and block timestamp.
func (c *Client) GetTransaction(ctx context.Context, txHash string) (*entity.Transaction, error) {
	raw, err := c.proxy(ctx, "eth_getTransactionByHash", map[string]string{"txhash": txHash})
	if err != nil {
		return nil, fmt.Errorf("get transaction %s: %w", txHash, err)
	}
	var rpcTx rpcTransaction
	if err := json.Unmarshal(raw, &rpcTx); err != nil {
		return nil, fmt.Errorf("%w: decode transaction %s: %v", entity.ErrRequestFailed, txHash, err)
	}

	// pending transactions have neither receipt nor block
	if rpcTx.BlockNumber == nil {
		tx := rpcTx.toEntity(nil, nil)
		return &tx, nil
	}

	var receipt *rpcReceipt
	rawReceipt, err := c.proxy(ctx, "eth_getTransactionReceipt", map[string]string{"txhash": txHash})
	switch {
	case errors.Is(err, entity.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("get receipt %s: %w", txHash, err)
	default:
		receipt = new(rpcReceipt)
		if err := json.Unmarshal(rawReceipt, receipt); err != nil {
			return nil, fmt.Errorf("%w: decode receipt %s: %v", entity.ErrRequestFailed, txHash, err)
		}
	}

	rawBlock, err := c.proxy(ctx, "eth_getBlockByNumber", map[string]string{
		"tag":     hexutil.EncodeUint64(uint64(*rpcTx.BlockNumber)),
		"boolean": "false",
	})
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", uint64(*rpcTx.BlockNumber), err)
	}
	var block rpcBlockHeader
	if err := json.Unmarshal(rawBlock, &block); err != nil {
		return nil, fmt.Errorf("%w: decode block %d: %v", entity.ErrRequestFailed, uint64(*rpcTx.BlockNumber), err)
	}

	tx := rpcTx.toEntity(receipt, &block)
	return &tx, nil
}

// GetTransactions lists the normal transactions of address.
func (c *Client) GetTransactions(ctx context.Context, address string, query entity.HistoryQuery) ([]entity.Transaction, error) {
	query = query.WithDefaults()
	params := c.params("account", "txlist")
	params.Set("address", address)
	params.Set("startblock", strconv.FormatUint(query.StartBlock, 10))
	params.Set("endblock", strconv.FormatUint(query.EndBlock, 10))
	params.Set("sort", query.Sort)
	if query.Page > 0 {
		params.Set("page", strconv.Itoa(query.Page))
	}
	if query.Offset > 0 {
		params.Set("offset", strconv.Itoa(query.Offset))
	}

	raw, ok, err := c.account(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get transactions for %s: %w", address, err)
	}
	if !ok {
		return []entity.Transaction{}, nil
	}

	var rows []txListRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode txlist for %s: %v", entity.ErrRequestFailed, address, err)
	}

	txs := make([]entity.Transaction, 0, len(rows))
	for i, row := range rows {
		tx, err := row.toEntity()
		if err != nil {
			return nil, fmt.Errorf("%w: txlist row %d (%s): %v", entity.ErrRequestFailed, i, row.Hash, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// GetBalance returns the latest native balance of address in wei.
func (c *Client) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	params := c.params("account", "balance")
	params.Set("address", address)
	params.Set("tag", "latest")

	raw, _, err := c.account(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get balance for %s: %w", address, err)
	}
	wei, err := utils.ParseBigInt(rawString(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: balance for %s: %v", entity.ErrRequestFailed, address, err)
	}
	return wei, nil
}

// GetETHPriceUSD returns the latest ETH/USD quote from stats/ethprice.
func (c *Client) GetETHPriceUSD(ctx context.Context) (decimal.Decimal, error) {
	raw, _, err := c.account(ctx, c.params("stats", "ethprice"))
	if err != nil {
		return decimal.Zero, fmt.Errorf("get eth price: %w", err)
	}
	var res ethPriceResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode eth price: %v", entity.ErrRequestFailed, err)
	}
	price, err := decimal.NewFromString(res.ETHUSD)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: eth price %q: %v", entity.ErrRequestFailed, res.ETHUSD, err)
	}
	return price, nil
}

// GetDailyPrices returns daily ETH/USD closes between start and end, inclusive, ascending.
func (c *Client) GetDailyPrices(ctx context.Context, start, end time.Time) ([]entity.PricePoint, error) {
	params := c.params("stats", "ethdailyprice")
	params.Set("startdate", start.UTC().Format("2006-01-02"))
	params.Set("enddate", end.UTC().Format("2006-01-02"))
	params.Set("sort", entity.SortAsc)

	raw, ok, err := c.account(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("get daily prices: %w", err)
	}
	if !ok {
		return []entity.PricePoint{}, nil
	}

	var rows []dailyPriceRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode daily prices: %v", entity.ErrRequestFailed, err)
	}
	points := make([]entity.PricePoint, 0, len(rows))
	for _, row := range rows {
		p, err := row.toEntity()
		if err != nil {
			return nil, fmt.Errorf("%w: daily price: %v", entity.ErrRequestFailed, err)
		}
		points = append(points, p)
	}
	return points, nil
}
