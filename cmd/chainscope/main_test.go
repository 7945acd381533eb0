package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"blockchain_analytics/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAddress = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
	testHash    = "0x5c504ed432cb51138bcf09aa5e8a410dd4a1e204ef84bfed1be16dfba1b22060"
)

func TestRewriteActionArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no action",
			in:   []string{"chainscope", "analyze_tx", "--tx", testHash},
			want: []string{"chainscope", "analyze_tx", "--tx", testHash},
		},
		{
			name: "action first",
			in:   []string{"chainscope", "--action", "analyze_tx", "--tx", testHash},
			want: []string{"chainscope", "analyze_tx", "--tx", testHash},
		},
		{
			name: "action after global flags",
			in:   []string{"chainscope", "--config", "c.yaml", "--json", "--action=analyze_address", "--address", testAddress},
			want: []string{"chainscope", "--config", "c.yaml", "--json", "analyze_address", "--address", testAddress},
		},
		{
			name: "global flag with inline value",
			in:   []string{"chainscope", "--network=polygon", "--action", "track_portfolio"},
			want: []string{"chainscope", "--network=polygon", "track_portfolio"},
		},
		{
			name: "global flags after the action",
			in:   []string{"chainscope", "--action", "analyze_address", "--address", testAddress, "--config", "c.yaml", "-n", "polygon", "--json"},
			want: []string{"chainscope", "--config", "c.yaml", "-n", "polygon", "--json", "analyze_address", "--address", testAddress},
		},
		{
			name: "global flags on both sides",
			in:   []string{"chainscope", "-j", "--action", "track_portfolio", "--network=base", "--address", testAddress},
			want: []string{"chainscope", "-j", "--network=base", "track_portfolio", "--address", testAddress},
		},
		{
			name: "unknown action left alone",
			in:   []string{"chainscope", "--action", "mine_blocks"},
			want: []string{"chainscope", "--action", "mine_blocks"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rewriteActionArgs(tt.in))
		})
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		err    error
		prefix string
	}{
		{fmt.Errorf("%w: %q", entity.ErrInvalidAddress, "0x1"), "Invalid input: "},
		{fmt.Errorf("get balance: %w", entity.ErrRequestFailed), "Request failed: "},
		{fmt.Errorf("get tx: %w", &entity.APIError{Message: "NOTOK", Result: "Invalid API Key"}), "Explorer API error: "},
		{fmt.Errorf("%w: rate limiter: %w", entity.ErrRequestFailed, context.DeadlineExceeded), "Request failed: "},
		{entity.ErrMissingAPIKey, "Configuration error: "},
		{entity.ErrNotFound, "Not found: "},
		{errors.New("boom"), "Error: "},
	}
	for _, tt := range tests {
		assert.True(t, strings.HasPrefix(describeError(tt.err), tt.prefix), describeError(tt.err))
	}
}

func TestChartOutput(t *testing.T) {
	out, err := chartOutput("", "", "volume")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = chartOutput("", "svg", "volume")
	require.NoError(t, err)
	assert.Equal(t, "volume.svg", out)

	out, err = chartOutput("charts/report.png", "PDF", "gas")
	require.NoError(t, err)
	assert.Equal(t, "charts/report.pdf", out)

	_, err = chartOutput("x.png", "gif", "gas")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, ":8080", listenAddr("8080"))
	assert.Equal(t, ":9090", listenAddr(":9090"))
	assert.Equal(t, "127.0.0.1:80", listenAddr("127.0.0.1:80"))
}

// fakeEtherscan answers the account, stats and proxy calls used by the commands.
func fakeEtherscan(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api") {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		switch q.Get("module") + "/" + q.Get("action") {
		case "account/balance":
			fmt.Fprint(w, `{"status":"1","message":"OK","result":"1500000000000000000"}`)
		case "account/txlist":
			fmt.Fprintf(w, `{"status":"1","message":"OK","result":[
 {"blockNumber":"100","timeStamp":"1700000000","hash":"0xaaa","nonce":"1","from":"0x0000000000000000000000000000000000000001","to":"%[1]s",
  "value":"2000000000000000000","gas":"21000","gasPrice":"20000000000","gasUsed":"21000","isError":"0","txreceipt_status":"1","methodId":"0x"},
 {"blockNumber":"200","timeStamp":"1700086400","hash":"0xbbb","nonce":"0","from":"%[1]s","to":"0x0000000000000000000000000000000000000002",
  "value":"500000000000000000","gas":"21000","gasPrice":"20000000000","gasUsed":"21000","isError":"0","txreceipt_status":"1","methodId":"0x"}
]}`, strings.ToLower(testAddress))
		case "stats/ethprice":
			fmt.Fprint(w, `{"status":"1","message":"OK","result":{"ethbtc":"0.05","ethbtc_timestamp":"1700000000","ethusd":"2000.00","ethusd_timestamp":"1700000000"}}`)
		default:
			fmt.Fprint(w, `{"status":"0","message":"NOTOK","result":"Error! Unsupported action"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeConfig(t *testing.T, srv *httptest.Server, extra string) string {
	t.Helper()
	t.Setenv("ETHERSCAN_API_KEY", "")
	t.Setenv("CONFIG_PATH", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := fmt.Sprintf(`api_settings:
  etherscan_api_key: test-key
  base_url: %[1]s/api
  rate_limit: 100
analysis:
  cache_ttl: -1
logging:
  level: error
dexScreener:
  baseURL: %[1]s/dex
%[2]s`, srv.URL, extra)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })

	err := newApp().Run(rewriteActionArgs(append([]string{"chainscope"}, args...)))
	return buf.String(), err
}

func TestAnalyzeAddressCommand(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")

	out, err := runApp(t, "--config", cfg, "--json", "--action", "analyze_address", "--address", testAddress, "--recent", "1")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "1.5", report["balance"])
	assert.EqualValues(t, 2, report["txCount"])
	assert.Equal(t, "2", report["totalIn"])
	assert.Equal(t, "0.5", report["totalOut"])
	recent := report["recent"].([]any)
	require.Len(t, recent, 1)
	assert.Equal(t, "0xbbb", recent[0].(map[string]any)["hash"])
}

func TestActionWithTrailingGlobalFlags(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")

	out, err := runApp(t, "--action", "analyze_address", "--address", testAddress, "--config", cfg, "--json")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "1.5", report["balance"])
}

func TestAnalyzeTxRejectsInvalidHash(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")

	_, err := runApp(t, "--config", cfg, "analyze_tx", "--tx", "0x1234")
	require.Error(t, err)
	assert.True(t, entity.IsInvalidInput(err))
	assert.True(t, strings.HasPrefix(describeError(err), "Invalid input: "))
}

func TestInvalidInputReportedBeforeConfiguration(t *testing.T) {
	t.Setenv("ETHERSCAN_API_KEY", "")
	t.Setenv("CONFIG_PATH", "")
	cfg := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\n"), 0o600))

	tests := []struct {
		name string
		args []string
		want error
	}{
		{"bad hash", []string{"analyze_tx", "--tx", "0x1234"}, entity.ErrInvalidTxHash},
		{"bad address", []string{"analyze_address", "0xnope"}, entity.ErrInvalidAddress},
		{"bad anomaly address", []string{"detect_anomalies", "--address", "0xnope"}, entity.ErrInvalidAddress},
		{"bad contamination", []string{"detect_anomalies", "--address", testAddress, "--contamination", "0.9"}, entity.ErrInvalidInput},
		{"bad chart address", []string{"visualize_data", "--address", "0xnope"}, entity.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runApp(t, append([]string{"--config", cfg}, tt.args...)...)
			require.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, entity.ErrMissingAPIKey)
			assert.True(t, strings.HasPrefix(describeError(err), "Invalid input: "), describeError(err))
		})
	}
}

func TestMissingAPIKey(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")
	require.NoError(t, os.WriteFile(cfg, []byte("logging:\n  level: error\n"), 0o600))

	_, err := runApp(t, "--config", cfg, "analyze_address", testAddress)
	assert.ErrorIs(t, err, entity.ErrMissingAPIKey)
}

func TestUnknownNetwork(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")

	_, err := runApp(t, "--config", cfg, "--network", "dogechain", "analyze_address", testAddress)
	assert.ErrorIs(t, err, entity.ErrUnknownNetwork)
}

func TestTrackPortfolioCommand(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, fmt.Sprintf(`portfolio:
  addresses:
    - address: %s
      network: ethereum
`, testAddress))

	out, err := runApp(t, "--config", cfg, "--json", "track_portfolio")
	require.NoError(t, err)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, "1.5", summary["totalBalance"])
	assert.Equal(t, "3000", summary["totalValueUSD"])
	holdings := summary["holdings"].([]any)
	require.Len(t, holdings, 1)
	h := holdings[0].(map[string]any)
	assert.Equal(t, "ETH", h["asset"])
	assert.EqualValues(t, 2, h["txCount"])
}

func TestTrackPortfolioRejectsInvalidAddress(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")

	_, err := runApp(t, "--config", cfg, "track_portfolio", "--address", "0xnope")
	assert.ErrorIs(t, err, entity.ErrInvalidAddress)
}

func TestVisualizeVolumeCommand(t *testing.T) {
	srv := fakeEtherscan(t)
	dir := t.TempDir()
	cfg := writeConfig(t, srv, fmt.Sprintf("visualization:\n  output_dir: %s\n", dir))

	out, err := runApp(t, "--config", cfg, "visualize_data", "--address", testAddress, "--chart", "volume", "--format", "svg")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, "volume.svg"))

	info, err := os.Stat(filepath.Join(dir, "volume.svg"))
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDetectAnomaliesCommand(t *testing.T) {
	srv := fakeEtherscan(t)
	cfg := writeConfig(t, srv, "")

	out, err := runApp(t, "--config", cfg, "--json", "detect_anomalies", "--address", testAddress, "--feature", "value")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.EqualValues(t, 2, res["transactions"])

	_, err = runApp(t, "--config", cfg, "detect_anomalies", "--address", testAddress, "--contamination", "0.9")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
