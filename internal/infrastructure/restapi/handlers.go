package restapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"blockchain_analytics/internal/app/port"
	"blockchain_analytics/internal/domain/entity"

	"github.com/gin-gonic/gin"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
	StatusMessage string `json:"status_message"`
}

// AddAddressRequest is the body of POST /api/v1/portfolio/addresses.
type AddAddressRequest struct {
	Address string `json:"address" binding:"required"`
	Network string `json:"network"`
}

// Handler serves the analysis and portfolio endpoints.
type Handler struct {
	analyzer       port.Analyzer
	patterns       port.PatternAnalyzer
	portfolio      port.PortfolioTracker
	defaultNetwork string
	recent         int
}

// NewHandler creates a Handler. recent is the default number of transactions in an address report.
func NewHandler(a port.Analyzer, pa port.PatternAnalyzer, pt port.PortfolioTracker, defaultNetwork string, recent int) *Handler {
	return &Handler{
		analyzer:       a,
		patterns:       pa,
		portfolio:      pt,
		defaultNetwork: defaultNetwork,
		recent:         recent,
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var apiErr *entity.APIError
	switch {
	case entity.IsInvalidInput(err), errors.Is(err, entity.ErrNoNumericFeatures):
		return http.StatusBadRequest
	case errors.Is(err, entity.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrDuplicateAddress):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &apiErr), errors.Is(err, entity.ErrRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, APIResponse{
		Error:         err.Error(),
		StatusMessage: http.StatusText(status),
	})
}

func respondOK(c *gin.Context, status int, data any, msg string) {
	c.JSON(status, APIResponse{Data: data, StatusMessage: msg})
}

// GetTransaction handles GET /api/v1/transactions/:hash.
func (h *Handler) GetTransaction(c *gin.Context) {
	tx, err := h.analyzer.GetTransaction(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, tx, "Transaction retrieved successfully.")
}

// GetAddress handles GET /api/v1/addresses/:address?recent=N.
func (h *Handler) GetAddress(c *gin.Context) {
	recent := h.recent
	if raw := c.Query("recent"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(c, errors.Join(entity.ErrInvalidInput, errors.New("recent must be a non-negative integer")))
			return
		}
		recent = n
	}

	report, err := h.analyzer.AnalyzeAddress(c.Request.Context(), c.Param("address"), recent)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, report, "Address analyzed successfully.")
}

// GetAddressAnomalies handles GET /api/v1/addresses/:address/anomalies?feature=value&feature=gas_used.
func (h *Handler) GetAddressAnomalies(c *gin.Context) {
	txs, err := h.analyzer.GetAddressHistory(c.Request.Context(), c.Param("address"), entity.HistoryQuery{})
	if err != nil {
		respondError(c, err)
		return
	}

	anomalies, err := h.patterns.DetectAnomalies(txs, c.QueryArray("feature"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"transactions": len(txs),
		"anomalies":    anomalies,
	}, "Anomaly detection finished.")
}

// GetPortfolio handles GET /api/v1/portfolio.
func (h *Handler) GetPortfolio(c *gin.Context) {
	summary, err := h.portfolio.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	msg := "Portfolio retrieved successfully."
	switch failed := len(summary.Failed()); {
	case len(summary.Holdings) == 0:
		msg = "No addresses tracked."
	case failed == len(summary.Holdings):
		msg = "Failed to retrieve any holding."
	case failed > 0:
		msg = "Portfolio retrieved. Some addresses could not be fetched."
	}
	respondOK(c, http.StatusOK, summary, msg)
}

// ListPortfolioAddresses handles GET /api/v1/portfolio/addresses?network=.
func (h *Handler) ListPortfolioAddresses(c *gin.Context) {
	respondOK(c, http.StatusOK, h.portfolio.ListAddresses(c.Query("network")), "Tracked addresses.")
}

// AddPortfolioAddress handles POST /api/v1/portfolio/addresses.
func (h *Handler) AddPortfolioAddress(c *gin.Context) {
	var req AddAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.Join(entity.ErrInvalidInput, err))
		return
	}
	if req.Network == "" {
		req.Network = h.defaultNetwork
	}
	if err := h.portfolio.AddAddress(req.Address, req.Network); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, req, "Address added.")
}

// RemovePortfolioAddress handles DELETE /api/v1/portfolio/addresses/:network/:address.
func (h *Handler) RemovePortfolioAddress(c *gin.Context) {
	if !h.portfolio.RemoveAddress(c.Param("address"), c.Param("network")) {
		respondError(c, errors.Join(entity.ErrNotFound, errors.New("address is not tracked")))
		return
	}
	c.Status(http.StatusNoContent)
}
