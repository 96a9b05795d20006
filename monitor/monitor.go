package monitor

import (
	"crypto/subtle"
	"net/http"
	"os"

	"university-portal-api/config"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxLogBytes caps how much of the log file /logs returns.
const maxLogBytes = 256 * 1024

// LogAccessHeader carries LOG_ACCESS_TOKEN. It is a header so the token never
// appears in access logs.
const LogAccessHeader = "X-Log-Access-Token"

// RegisterLogsRoute serves the tail of the API log file to callers presenting
// LOG_ACCESS_TOKEN. The route is not registered when no token is configured.
func RegisterLogsRoute(router *gin.Engine, accessToken string) {
	if accessToken == "" {
		return
	}
	router.GET("/logs", func(c *gin.Context) {
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(LogAccessHeader)), []byte(accessToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		logData, err := os.ReadFile(config.LogFilePath())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		if len(logData) > maxLogBytes {
			logData = logData[len(logData)-maxLogBytes:]
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", logData)
	})
}

// RegisterMetricsRoute exposes the registry in the Prometheus text format.
func RegisterMetricsRoute(router *gin.Engine, gatherer prometheus.Gatherer) {
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
