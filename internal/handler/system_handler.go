package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck 供负载均衡与监控探测。数据库不可达时返回 503，其余字段是进程内状态。
func (a *API) HealthCheck(c *gin.Context) {
	sqlDB, err := a.db.DB()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "database handle unavailable")
		return
	}
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "database": "down"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"database": "up",
		"checkout": gin.H{
			"openFlows":  a.flows.Len(),
			"rateLimit":  a.limiter.burst,
			"draftDelay": a.draftWindow.String(),
		},
		"courier": gin.H{
			"cachedNumbers": a.courier.CachedNumbers(),
			"thresholds":    a.courier.Thresholds(),
		},
		"time": a.now().UTC(),
	})
}
