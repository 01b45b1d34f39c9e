package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vcrr512-lgtm/SpecScan/internal/analysis"
	"github.com/vcrr512-lgtm/SpecScan/internal/config"
	"github.com/vcrr512-lgtm/SpecScan/internal/inference"
)

// RegisterRoutes wires the HTTP handlers to the Gin router. authMiddleware
// may be nil, which leaves the analysis endpoints open.
func RegisterRoutes(router *gin.Engine, cfg *config.Config, pipeline *analysis.Pipeline, authMiddleware gin.HandlerFunc) {
	router.GET("/health", healthHandler)

	protected := router.Group("/")
	if authMiddleware != nil {
		protected.Use(authMiddleware)
	}
	protected.POST("/analyze", analyzeHandler(cfg, pipeline))
	protected.GET("/metrics", metricsHandler(pipeline))

	router.NoRoute(spaFallback(cfg.StaticDir))
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"message":   "defect detection relay is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func analyzeHandler(cfg *config.Config, pipeline *analysis.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, area, err := readUpload(c.Request, cfg.MaxUploadBytes)
		if err != nil {
			rejectUpload(c, err)
			return
		}
		if len(items) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "no images provided",
				"message": "attach at least one image file to analyze",
			})
			return
		}
		// Checked after file presence so that client-side upload mistakes
		// are diagnosed before operator-side configuration mistakes.
		if !cfg.InferenceConfigured() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "api not configured",
				"message": "the inference API key or model identifier is not configured",
			})
			return
		}
		if area == "" {
			area = "unknown"
		}

		report, err := pipeline.Analyze(c.Request.Context(), area, items)
		if err != nil {
			var apiErr *inference.APIError
			if errors.As(err, &apiErr) {
				status := apiErr.StatusCode
				if status < http.StatusBadRequest {
					status = http.StatusBadGateway
				}
				c.JSON(status, gin.H{
					"error":       "remote api error",
					"message":     apiErr.UserMessage(),
					"status":      apiErr.StatusCode,
					"statusText":  apiErr.StatusText(),
					"remoteError": apiErr.Message(),
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal server error",
				"message": "analysis failed unexpectedly",
			})
			return
		}

		c.Header("X-Request-ID", report.RequestID)
		c.JSON(http.StatusOK, report)
	}
}

func rejectUpload(c *gin.Context, err error) {
	code := "upload error"
	switch {
	case errors.Is(err, ErrInvalidFileType):
		code = "invalid file type"
	case errors.Is(err, ErrFileTooLarge):
		code = "file too large"
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   code,
		"message": err.Error(),
	})
}

func metricsHandler(pipeline *analysis.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		summary, err := pipeline.GetMetricsSummary(c.Request.Context())
		if err != nil {
			if errors.Is(err, analysis.ErrHistoryDisabled) {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"error":   "history not configured",
					"message": "analysis history persistence is disabled",
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal server error",
				"message": "failed to aggregate metrics",
			})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// spaFallback serves the frontend entry document for unmatched GET paths so
// client-side routes resolve; everything else is a JSON 404.
func spaFallback(staticDir string) gin.HandlerFunc {
	index := filepath.Join(staticDir, "index.html")
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			if _, err := os.Stat(index); err == nil {
				c.File(index)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not found",
			"message": "unknown route",
		})
	}
}
