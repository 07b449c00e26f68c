package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pagecart/internal/checkout"
)

const (
	sessionUserID    = "user_id"
	sessionUsername  = "username"
	sessionVisitorID = "visitor_id"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseUintQuerySlice(values []string) []uint {
	ids := make([]uint, 0, len(values))
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			parsed, err := strconv.ParseUint(trimmed, 10, 32)
			if err != nil {
				continue
			}
			ids = append(ids, uint(parsed))
		}
	}
	return ids
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

// ensureVisitorID 返回会话中的访客 ID，没有时生成一个并写回会话。
func ensureVisitorID(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionVisitorID).(string); ok && strings.TrimSpace(id) != "" {
		return id, nil
	}
	id := uuid.NewString()
	session.Set(sessionVisitorID, id)
	if err := session.Save(); err != nil {
		return "", err
	}
	return id, nil
}

func visitorID(c *gin.Context) string {
	id, _ := sessions.Default(c).Get(sessionVisitorID).(string)
	return id
}

// respondFlowError 把下单流程的错误转换为响应，snapshot 一并返回便于前端恢复界面。
func respondFlowError(c *gin.Context, snap checkout.Snapshot, err error) {
	var verr *checkout.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "please check the highlighted fields", "fields": verr.Fields, "flow": snap})
	case errors.Is(err, checkout.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": "your order is being submitted", "flow": snap})
	case errors.Is(err, checkout.ErrClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "this order has already been placed", "flow": snap})
	case snap.State == checkout.StateFailed:
		c.JSON(http.StatusBadGateway, gin.H{"error": "we could not place your order, please try again", "flow": snap})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "flow": snap})
	}
}
