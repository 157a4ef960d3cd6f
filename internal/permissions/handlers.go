package permissions

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Handler provides HTTP endpoints for permission configuration
type Handler struct {
	store Store
}

// NewHandler creates a new permissions handler
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// GetConfig returns the permission snapshot for a wallet.
// GET /v1/permissions/:wallet
func (h *Handler) GetConfig(c *gin.Context) {
	subject := strings.ToLower(c.Param("wallet"))

	snap, err := h.store.Get(c.Request.Context(), subject)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No permission configuration for this wallet",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load permission configuration",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": snap})
}

// ConfigRequest is the request body for updating a permission snapshot.
// The rolling daily pair is owned by the pipeline and cannot be set here.
type ConfigRequest struct {
	MonitoringEnabled   bool `json:"monitoringEnabled"`
	AutoRevokeApprovals bool `json:"autoRevokeApprovals"`
	AutoExitPools       bool `json:"autoExitPools"`
	AutoUnstake         bool `json:"autoUnstake"`

	ILThresholdBps           int `json:"ilThresholdBps"`
	HealthFactorThresholdBps int `json:"healthFactorThresholdBps"`

	AutoAnalysisEnabled    bool `json:"autoAnalysisEnabled"`
	AnalysisFrequencyHours int  `json:"analysisFrequencyHours"`

	ExecutorEnabled  bool     `json:"executorEnabled"`
	MaxTxAmountUSD   string   `json:"maxTxAmountUsd"`
	AllowedProtocols []string `json:"allowedProtocols"`
	MaxSlippageBps   int      `json:"maxSlippageBps"`
	DCAEnabled       bool     `json:"dcaEnabled"`
	RebalanceEnabled bool     `json:"rebalanceEnabled"`

	DailyTxLimit int `json:"dailyTxLimit"`
}

// PutConfig replaces the permission snapshot for a wallet.
// PUT /v1/permissions/:wallet
func (h *Handler) PutConfig(c *gin.Context) {
	subject := strings.ToLower(c.Param("wallet"))

	var req ConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	if req.ILThresholdBps <= 0 || req.ILThresholdBps > 10000 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_threshold",
			"message": "ilThresholdBps must be in (0, 10000]",
		})
		return
	}
	if req.HealthFactorThresholdBps <= 10000 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_threshold",
			"message": "healthFactorThresholdBps must exceed 10000 (factor 1.0)",
		})
		return
	}
	if req.DailyTxLimit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_limit",
			"message": "dailyTxLimit must be positive",
		})
		return
	}

	maxAmount := decimal.Zero
	if req.MaxTxAmountUSD != "" {
		parsed, err := decimal.NewFromString(req.MaxTxAmountUSD)
		if err != nil || parsed.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_amount",
				"message": "maxTxAmountUsd must be a non-negative decimal",
			})
			return
		}
		maxAmount = parsed
	}

	allowed := NewProtocolSet()
	for _, name := range req.AllowedProtocols {
		p := Protocol(name)
		if _, ok := protocolBits[p]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "unknown_protocol",
				"message": "unsupported protocol: " + name,
			})
			return
		}
		allowed = allowed.Add(p)
	}

	snap := &Snapshot{
		Subject:                  subject,
		MonitoringEnabled:        req.MonitoringEnabled,
		AutoRevokeApprovals:      req.AutoRevokeApprovals,
		AutoExitPools:            req.AutoExitPools,
		AutoUnstake:              req.AutoUnstake,
		ILThresholdBps:           req.ILThresholdBps,
		HealthFactorThresholdBps: req.HealthFactorThresholdBps,
		AutoAnalysisEnabled:      req.AutoAnalysisEnabled,
		AnalysisFrequencyHours:   req.AnalysisFrequencyHours,
		ExecutorEnabled:          req.ExecutorEnabled,
		MaxTxAmountUSD:           maxAmount,
		AllowedProtocols:         allowed,
		MaxSlippageBps:           req.MaxSlippageBps,
		DCAEnabled:               req.DCAEnabled,
		RebalanceEnabled:         req.RebalanceEnabled,
		DailyTxLimit:             req.DailyTxLimit,
		UpdatedAt:                time.Now().UTC(),
	}

	if err := h.store.Put(c.Request.Context(), snap); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to store permission configuration",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"permissions": snap})
}
