package service

import (
	"fmt"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"
	"blockchain_analytics/internal/pkg/anomaly"
	"blockchain_analytics/internal/pkg/metrics"
	"blockchain_analytics/internal/pkg/utils"
)

// Feature names understood by DetectAnomalies.
const (
	FeatureValue       = "value"
	FeatureGasUsed     = "gas_used"
	FeatureGasPrice    = "gas_price"
	FeatureBlockNumber = "block_number"
)

// DefaultFeatures is used when the caller selects none.
var DefaultFeatures = []string{FeatureValue, FeatureGasUsed, FeatureGasPrice, FeatureBlockNumber}

type featureExtractor func(tx entity.Transaction) float64

var featureExtractors = map[string]featureExtractor{
	FeatureValue: func(tx entity.Transaction) float64 {
		v, _ := tx.Value.Float64()
		return v
	},
	FeatureGasUsed: func(tx entity.Transaction) float64 {
		return float64(tx.GasUsed)
	},
	FeatureGasPrice: func(tx entity.Transaction) float64 {
		if tx.GasPrice == nil {
			return 0
		}
		v, _ := utils.ToDecimal(tx.GasPrice, 0).Float64()
		return v
	},
	FeatureBlockNumber: func(tx entity.Transaction) float64 {
		return float64(tx.BlockNumber)
	},
}

// PatternService flags unusual transactions with an isolation forest.
type PatternService struct {
	contamination float64
	logger        port.Logger
	metrics       *metrics.Metrics
}

// NewPatternService creates a detector; contamination is the expected outlier share.
func NewPatternService(contamination float64, logger port.Logger, m *metrics.Metrics) *PatternService {
	return &PatternService{contamination: contamination, logger: logger, metrics: m}
}

// WithContamination returns a copy using another contamination value.
func (s *PatternService) WithContamination(contamination float64) *PatternService {
	clone := *s
	clone.contamination = contamination
	return &clone
}

// DetectAnomalies scores txs on the selected features and returns the outliers in input order.
// Unknown features are skipped; with none left the result is empty and the error is entity.ErrNoNumericFeatures.
func (s *PatternService) DetectAnomalies(txs []entity.Transaction, features []string) ([]entity.Anomaly, error) {
	if len(txs) == 0 {
		s.logger.Warn("No transactions to analyze for anomalies")
		return []entity.Anomaly{}, nil
	}
	if len(features) == 0 {
		features = DefaultFeatures
	}

	selected := make([]string, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		if _, ok := featureExtractors[f]; !ok {
			s.logger.Warn("Skipping unknown anomaly feature", "feature", f)
			continue
		}
		selected = append(selected, f)
	}
	if len(selected) == 0 {
		s.logger.Error("No numeric features selected for anomaly detection", "requested", features)
		return []entity.Anomaly{}, fmt.Errorf("%w: %v", entity.ErrNoNumericFeatures, features)
	}

	rows := make([][]float64, len(txs))
	for i, tx := range txs {
		row := make([]float64, len(selected))
		for j, f := range selected {
			row[j] = featureExtractors[f](tx)
		}
		rows[i] = row
	}

	forest, err := anomaly.Fit(rows, anomaly.Options{Contamination: s.contamination})
	if err != nil {
		return []entity.Anomaly{}, fmt.Errorf("fit isolation forest: %w", err)
	}

	scores := forest.TrainingScores()
	outliers := forest.Outliers()
	result := make([]entity.Anomaly, 0, len(outliers))
	for _, i := range outliers {
		vector := make(map[string]float64, len(selected))
		for j, f := range selected {
			vector[f] = rows[i][j]
		}
		result = append(result, entity.Anomaly{
			Transaction: txs[i],
			Score:       scores[i],
			Features:    vector,
			Type:        entity.AnomalyLabel,
		})
	}

	s.metrics.RecordAnomalies(len(result))
	s.logger.Info("Anomaly detection finished",
		"transactions", len(txs),
		"features", selected,
		"anomalies", len(result),
		"threshold", forest.Threshold())
	return result, nil
}
