package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is the parent of every validation failure raised before a request is made.
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidAddress   = fmt.Errorf("%w: invalid address", ErrInvalidInput)
	ErrInvalidTxHash    = fmt.Errorf("%w: invalid transaction hash", ErrInvalidInput)
	ErrUnknownNetwork   = fmt.Errorf("%w: unknown network", ErrInvalidInput)
	ErrDuplicateAddress = errors.New("address already tracked")

	// ErrRequestFailed covers transport failures, non-200 responses and malformed bodies.
	ErrRequestFailed     = errors.New("request failed")
	ErrNotFound          = errors.New("not found")
	ErrMissingAPIKey     = errors.New("etherscan api key is required")
	ErrNoNumericFeatures = errors.New("none of the selected features is numeric")
)

// APIError is a failure reported by the explorer itself (status "0" or a JSON-RPC error object).
type APIError struct {
	Message string
	Result  string
}

func (e *APIError) Error() string {
	if e.Result != "" && e.Result != e.Message {
		return fmt.Sprintf("etherscan api error: %s: %s", e.Message, e.Result)
	}
	return "etherscan api error: " + e.Message
}

// IsInvalidInput reports whether err was caused by bad caller input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
