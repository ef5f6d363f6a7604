package handler

import (
	"net/http"

	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/middleware"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/pkg/apperrors"
	"github.com/RA-CONSULTING/aureon-trading-sub005/internal/service"
	"github.com/gin-gonic/gin"
)

type BalanceHandler struct {
	agg *service.Aggregator
}

func NewBalanceHandler(agg *service.Aggregator) *BalanceHandler {
	return &BalanceHandler{agg: agg}
}

// GetBalances runs one aggregation cycle for the authenticated user and
// returns the merged per-venue reports.
func (h *BalanceHandler) GetBalances(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == "" {
		_ = c.Error(apperrors.New(apperrors.ErrAuthFailed, "missing authenticated user", nil))
		c.Abort()
		return
	}

	result, err := h.agg.Aggregate(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.JSON(http.StatusOK, result)
}

// Health reports process liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
