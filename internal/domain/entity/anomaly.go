package entity

// AnomalyLabel marks a transaction the detector scored as unusual.
const AnomalyLabel = "unusual_behavior"

// Anomaly is a transaction flagged by the pattern analyzer.
type Anomaly struct {
	Transaction Transaction        `json:"transaction"`
	Score       float64            `json:"score"`
	Features    map[string]float64 `json:"features"`
	Type        string             `json:"anomalyType"`
}
