package etherscan

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

// noTransactionsMessage is returned with status "0" for addresses without history.
const noTransactionsMessage = "No transactions found"

// accountEnvelope wraps every module=account/stats response.
type accountEnvelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Result  jsoniter.RawMessage `json:"result"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// proxyEnvelope wraps module=proxy responses. Some proxy failures (bad API key, rate limit)
// come back in the account shape instead, hence Status and Message.
type proxyEnvelope struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      jsoniter.RawMessage `json:"id"`
	Result  jsoniter.RawMessage `json:"result"`
	Error   *rpcError           `json:"error"`
	Status  string              `json:"status"`
	Message string              `json:"message"`
}

// txListRow is one row of account/txlist. All numbers are decimal strings.
type txListRow struct {
	BlockNumber       string `json:"blockNumber"`
	TimeStamp         string `json:"timeStamp"`
	Hash              string `json:"hash"`
	Nonce             string `json:"nonce"`
	From              string `json:"from"`
	To                string `json:"to"`
	Value             string `json:"value"`
	Gas               string `json:"gas"`
	GasPrice          string `json:"gasPrice"`
	GasUsed           string `json:"gasUsed"`
	IsError           string `json:"isError"`
	TxReceiptStatus   string `json:"txreceipt_status"`
	ContractAddress   string `json:"contractAddress"`
	MethodID          string `json:"methodId"`
	FunctionName      string `json:"functionName"`
	Confirmations     string `json:"confirmations"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
}

type ethPriceResult struct {
	ETHBTC          string `json:"ethbtc"`
	ETHBTCTimestamp string `json:"ethbtc_timestamp"`
	ETHUSD          string `json:"ethusd"`
	ETHUSDTimestamp string `json:"ethusd_timestamp"`
}

type dailyPriceRow struct {
	UTCDate       string `json:"UTCDate"`
	UnixTimeStamp string `json:"unixTimeStamp"`
	Value         string `json:"value"`
}

// rpcTransaction is the eth_getTransactionByHash object. Numbers are hex quantities.
type rpcTransaction struct {
	Hash        string          `json:"hash"`
	From        string          `json:"from"`
	To          *string         `json:"to"`
	Value       *hexutil.Big    `json:"value"`
	Gas         hexutil.Uint64  `json:"gas"`
	GasPrice    *hexutil.Big    `json:"gasPrice"`
	BlockNumber *hexutil.Uint64 `json:"blockNumber"`
	Nonce       hexutil.Uint64  `json:"nonce"`
	Input       string          `json:"input"`
}

type rpcReceipt struct {
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	Status          *hexutil.Uint64 `json:"status"`
	ContractAddress *string         `json:"contractAddress"`
}

type rpcBlockHeader struct {
	Number    hexutil.Uint64 `json:"number"`
	Timestamp hexutil.Uint64 `json:"timestamp"`
}

func parseUint(field, s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return v, nil
}

func (r txListRow) toEntity() (entity.Transaction, error) {
	valueWei, err := utils.ParseBigInt(r.Value)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("value: %w", err)
	}
	gasPrice, err := utils.ParseBigInt(r.GasPrice)
	if err != nil {
		return entity.Transaction{}, fmt.Errorf("gasPrice: %w", err)
	}
	block, err := parseUint("blockNumber", r.BlockNumber)
	if err != nil {
		return entity.Transaction{}, err
	}
	ts, err := parseUint("timeStamp", r.TimeStamp)
	if err != nil {
		return entity.Transaction{}, err
	}
	gasUsed, err := parseUint("gasUsed", r.GasUsed)
	if err != nil {
		return entity.Transaction{}, err
	}
	gasLimit, err := parseUint("gas", r.Gas)
	if err != nil {
		return entity.Transaction{}, err
	}
	nonce, err := parseUint("nonce", r.Nonce)
	if err != nil {
		return entity.Transaction{}, err
	}

	return entity.Transaction{
		Hash:            r.Hash,
		From:            r.From,
		To:              r.To,
		Value:           utils.WeiToEther(valueWei),
		ValueWei:        valueWei,
		GasUsed:         gasUsed,
		GasLimit:        gasLimit,
		GasPrice:        gasPrice,
		BlockNumber:     block,
		Nonce:           nonce,
		Timestamp:       time.Unix(int64(ts), 0).UTC(),
		Status:          r.TxReceiptStatus,
		IsError:         r.IsError == "1",
		MethodID:        r.MethodID,
		ContractAddress: r.ContractAddress,
	}, nil
}

func methodID(input string) string {
	if len(input) >= 10 && strings.HasPrefix(input, "0x") {
		return input[:10]
	}
	return ""
}

// toEntity merges the transaction object with its receipt and block header, either of which may be nil
// for a pending transaction.
func (t rpcTransaction) toEntity(receipt *rpcReceipt, block *rpcBlockHeader) entity.Transaction {
	valueWei := new(big.Int)
	if t.Value != nil {
		valueWei = t.Value.ToInt()
	}
	gasPrice := new(big.Int)
	if t.GasPrice != nil {
		gasPrice = t.GasPrice.ToInt()
	}

	tx := entity.Transaction{
		Hash:     t.Hash,
		From:     t.From,
		Value:    utils.WeiToEther(valueWei),
		ValueWei: valueWei,
		GasLimit: uint64(t.Gas),
		GasPrice: gasPrice,
		Nonce:    uint64(t.Nonce),
		MethodID: methodID(t.Input),
	}
	if t.To != nil {
		tx.To = *t.To
	}
	if t.BlockNumber != nil {
		tx.BlockNumber = uint64(*t.BlockNumber)
	}
	if receipt != nil {
		tx.GasUsed = uint64(receipt.GasUsed)
		if receipt.Status != nil {
			tx.Status = strconv.FormatUint(uint64(*receipt.Status), 10)
			tx.IsError = *receipt.Status == 0
		}
		if receipt.ContractAddress != nil {
			tx.ContractAddress = *receipt.ContractAddress
		}
	}
	if block != nil {
		tx.Timestamp = time.Unix(int64(block.Timestamp), 0).UTC()
	}
	return tx
}

func (r dailyPriceRow) toEntity() (entity.PricePoint, error) {
	price, err := decimal.NewFromString(r.Value)
	if err != nil {
		return entity.PricePoint{}, fmt.Errorf("invalid price %q: %w", r.Value, err)
	}
	var at time.Time
	if r.UnixTimeStamp != "" {
		ts, err := parseUint("unixTimeStamp", r.UnixTimeStamp)
		if err != nil {
			return entity.PricePoint{}, err
		}
		at = time.Unix(int64(ts), 0).UTC()
	} else {
		at, err = time.Parse("2006-01-02", r.UTCDate)
		if err != nil {
			return entity.PricePoint{}, fmt.Errorf("invalid date %q: %w", r.UTCDate, err)
		}
	}
	return entity.PricePoint{Time: at, Price: price}, nil
}
