package walletloader

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/utils"
)

// WalletFileLoader implements port.WalletProvider by reading a plain-text wallets file.
// Each non-comment line is either "address" or "network,address".
type WalletFileLoader struct {
	filePath       string
	defaultNetwork string
	logger         port.Logger
}

// NewWalletFileLoader creates a loader; lines without a network get defaultNetwork.
func NewWalletFileLoader(filePath, defaultNetwork string, logger port.Logger) *WalletFileLoader {
	return &WalletFileLoader{
		filePath:       filePath,
		defaultNetwork: strings.ToLower(defaultNetwork),
		logger:         logger,
	}
}

// GetWallets reads wallet addresses from the configured file path.
// An unset path or a missing file yields no wallets.
func (l *WalletFileLoader) GetWallets() ([]entity.Wallet, error) {
	if l.filePath == "" {
		return nil, nil
	}

	file, err := os.Open(l.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("Wallets file not found, skipping", "path", l.filePath)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open wallet file %s: %w", l.filePath, err)
	}
	defer file.Close()

	var wallets []entity.Wallet
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		network, address := l.defaultNetwork, line
		if before, after, found := strings.Cut(line, ","); found {
			network = strings.ToLower(strings.TrimSpace(before))
			address = strings.TrimSpace(after)
		}
		if !utils.IsValidAddress(address) {
			l.logger.Warn("Skipping invalid wallet address format", "file", l.filePath, "line_number", lineNum, "address", address)
			continue
		}
		wallets = append(wallets, entity.Wallet{Address: address, Network: network})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error scanning wallet file %s: %w", l.filePath, err)
	}

	l.logger.Info("Wallets loaded successfully from file", "count", len(wallets), "path", l.filePath)
	return wallets, nil
}
