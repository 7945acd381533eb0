package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const gweiDecimals = 9

var stdout io.Writer = os.Stdout

func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

// describeError prefixes err with its category so bad input is told apart from upstream failures.
func describeError(err error) string {
	var apiErr *entity.APIError
	switch {
	case errors.Is(err, entity.ErrMissingAPIKey):
		return "Configuration error: " + err.Error()
	case entity.IsInvalidInput(err):
		return "Invalid input: " + err.Error()
	case errors.Is(err, entity.ErrNotFound):
		return "Not found: " + err.Error()
	case errors.As(err, &apiErr):
		return "Explorer API error: " + apiErr.Error()
	case errors.Is(err, entity.ErrRequestFailed):
		return "Request failed: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func txStatus(tx entity.Transaction) string {
	switch {
	case tx.IsError || tx.Status == "0":
		return "failed"
	case tx.Status == "1":
		return "success"
	default:
		return "pending"
	}
}

func printTransaction(tx *entity.Transaction) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Hash:\t%s\n", tx.Hash)
	fmt.Fprintf(w, "Block:\t%d\n", tx.BlockNumber)
	fmt.Fprintf(w, "Timestamp:\t%s\n", formatTime(tx.Timestamp))
	fmt.Fprintf(w, "From:\t%s\n", tx.From)
	fmt.Fprintf(w, "To:\t%s\n", tx.To)
	fmt.Fprintf(w, "Value:\t%s ETH\n", tx.Value.String())
	fmt.Fprintf(w, "Gas used:\t%d / %d\n", tx.GasUsed, tx.GasLimit)
	fmt.Fprintf(w, "Gas price:\t%s gwei\n", utils.FormatBigInt(tx.GasPrice, gweiDecimals))
	fmt.Fprintf(w, "Fee:\t%s ETH\n", utils.WeiToEther(tx.FeeWei()).String())
	fmt.Fprintf(w, "Nonce:\t%d\n", tx.Nonce)
	fmt.Fprintf(w, "Status:\t%s\n", txStatus(*tx))
	if tx.MethodID != "" {
		fmt.Fprintf(w, "Method:\t%s\n", tx.MethodID)
	}
	w.Flush()
}

func printTransactions(txs []entity.Transaction) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tTIME\tFROM\tTO\tVALUE (ETH)\tSTATUS")
	for _, tx := range txs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Hash,
			formatTime(tx.Timestamp),
			tx.From,
			tx.To,
			tx.Value.String(),
			txStatus(tx),
		)
	}
	w.Flush()
}

func printAddressReport(r *entity.AddressReport) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Address:\t%s\n", utils.ChecksumAddress(r.Address))
	fmt.Fprintf(w, "Balance:\t%s ETH\n", r.Balance.String())
	fmt.Fprintf(w, "Transactions:\t%d (%d failed)\n", r.TxCount, r.FailedTxs)
	fmt.Fprintf(w, "First seen:\t%s\n", formatTime(r.FirstSeen))
	fmt.Fprintf(w, "Last seen:\t%s\n", formatTime(r.LastSeen))
	fmt.Fprintf(w, "Received:\t%s ETH\n", r.TotalIn.String())
	fmt.Fprintf(w, "Sent:\t%s ETH\n", r.TotalOut.String())
	fmt.Fprintf(w, "Fees paid:\t%s ETH\n", r.FeesPaid.String())
	w.Flush()

	if len(r.Recent) > 0 {
		fmt.Fprintf(stdout, "\nMost recent %d transactions:\n", len(r.Recent))
		printTransactions(r.Recent)
	}
}

func printSummary(s entity.PortfolioSummary) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NETWORK\tADDRESS\tBALANCE\tVALUE (%s)\tTXS\tERROR\n", s.BaseCurrency)
	for _, h := range s.Holdings {
		errText := "-"
		if h.Error != "" {
			errText = h.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\t%d\t%s\n",
			h.Network,
			h.Address,
			h.Balance.String(),
			h.Asset,
			h.ValueUSD.StringFixed(2),
			h.TxCount,
			errText,
		)
	}
	w.Flush()

	fmt.Fprintf(stdout, "\nTotal balance: %s\n", s.TotalBalance.String())
	fmt.Fprintf(stdout, "Total value:   %s %s\n", s.TotalValueUSD.StringFixed(2), s.BaseCurrency)
	if failed := len(s.Failed()); failed > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d addresses could not be fetched\n", failed, len(s.Holdings))
	}
}

func printAnomalies(anomalies []entity.Anomaly, total int) {
	if len(anomalies) == 0 {
		fmt.Fprintf(stdout, "No anomalies among %d transactions\n", total)
		return
	}
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tTIME\tSCORE\tVALUE (ETH)\tGAS USED\tTYPE")
	for _, a := range anomalies {
		fmt.Fprintf(w, "%s\t%s\t%.4f\t%s\t%d\t%s\n",
			a.Transaction.Hash,
			formatTime(a.Transaction.Timestamp),
			a.Score,
			a.Transaction.Value.String(),
			a.Transaction.GasUsed,
			a.Type,
		)
	}
	w.Flush()
	fmt.Fprintf(stdout, "\n%d of %d transactions flagged\n", len(anomalies), total)
}
