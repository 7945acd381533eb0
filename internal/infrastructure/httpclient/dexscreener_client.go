package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultDEXScreenerURL = "https://api.dexscreener.com"
	// MaxTokensPerRequest is the address limit of the /tokens/v1 endpoint.
	MaxTokensPerRequest = 30
)

type dexScreenerClient struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewDEXScreenerClient creates a DEX Screener API client.
func NewDEXScreenerClient(baseURL string, timeout time.Duration, logger *zap.Logger) port.DEXScreenerClient {
	if baseURL == "" {
		baseURL = DefaultDEXScreenerURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &dexScreenerClient{
		client:  &fasthttp.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		logger:  logger.Named("DEXScreenerClient"),
	}
}

// GetTokenPairsByAddresses returns every pair in which one of tokenAddresses trades on the given chain.
func (c *dexScreenerClient) GetTokenPairsByAddresses(ctx context.Context, dexscreenerChainID string, tokenAddresses []string) ([]entity.PairData, error) {
	if len(tokenAddresses) == 0 {
		return nil, fmt.Errorf("%w: token addresses cannot be empty", entity.ErrInvalidInput)
	}
	if len(tokenAddresses) > MaxTokensPerRequest {
		return nil, fmt.Errorf("%w: %d token addresses exceed the limit of %d", entity.ErrInvalidInput, len(tokenAddresses), MaxTokensPerRequest)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	requestURL := fmt.Sprintf("%s/tokens/v1/%s/%s", c.baseURL, dexscreenerChainID, strings.Join(tokenAddresses, ","))
	c.logger.Debug("Requesting token pairs from DEX Screener", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	var err error
	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Error("Failed to execute request to DEX Screener", zap.String("url", requestURL), zap.Error(err))
		return nil, fmt.Errorf("%w: dexscreener %s: %v", entity.ErrRequestFailed, dexscreenerChainID, err)
	}

	rawBody := resp.Body()
	if resp.StatusCode() != fasthttp.StatusOK {
		c.logger.Error("DEX Screener API request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", resp.StatusCode()),
			zap.ByteString("responseBody", rawBody))
		return nil, fmt.Errorf("%w: dexscreener %s: http status %d", entity.ErrRequestFailed, dexscreenerChainID, resp.StatusCode())
	}

	pairs, err := decodePairs(rawBody)
	if err != nil {
		c.logger.Error("Failed to decode DEX Screener response",
			zap.String("url", requestURL),
			zap.ByteString("responseBody", rawBody),
			zap.Error(err))
		return nil, fmt.Errorf("%w: dexscreener %s: %v", entity.ErrRequestFailed, dexscreenerChainID, err)
	}
	if len(pairs) == 0 {
		c.logger.Warn("DEX Screener returned no pairs", zap.String("dexscreenerChainID", dexscreenerChainID))
	}
	return pairs, nil
}

// decodePairs accepts both the bare array and the {"pairs": [...]} wrapper.
func decodePairs(body []byte) ([]entity.PairData, error) {
	var wrapped entity.DEXTokenPair
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Pairs != nil {
		return wrapped.Pairs, nil
	}
	var direct []entity.PairData
	if err := json.Unmarshal(body, &direct); err != nil {
		return nil, err
	}
	return direct, nil
}
