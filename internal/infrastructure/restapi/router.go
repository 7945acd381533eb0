package restapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter wires the v1 API, CORS, request logging and the /metrics endpoint.
// A nil gatherer serves the default Prometheus registry.
func SetupRouter(h *Handler, logger *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))
	router.Use(ZapLoggerMiddleware(logger))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/transactions/:hash", h.GetTransaction)
		v1.GET("/addresses/:address", h.GetAddress)
		v1.GET("/addresses/:address/anomalies", h.GetAddressAnomalies)
		v1.GET("/portfolio", h.GetPortfolio)
		v1.GET("/portfolio/addresses", h.ListPortfolioAddresses)
		v1.POST("/portfolio/addresses", h.AddPortfolioAddress)
		v1.DELETE("/portfolio/addresses/:network/:address", h.RemovePortfolioAddress)
	}

	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

// ZapLoggerMiddleware logs one line per request. Server errors are logged at error level.
func ZapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny).String(); errs != "" {
			fields = append(fields, zap.String("errors", errs))
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error("HTTP request", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}
