package utils

import (
	"blockchain_analytics/internal/domain/entity"
)

// SafeDerefFloat64 returns getter(*liquidity), or 0 for a nil pointer.
func SafeDerefFloat64(liquidity *entity.DEXLiquidity, getter func(entity.DEXLiquidity) float64) float64 {
	if liquidity == nil {
		return 0.0
	}
	return getter(*liquidity)
}
