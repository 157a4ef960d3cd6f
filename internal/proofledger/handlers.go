package proofledger

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aegis-guard/aegis/internal/pagination"
)

// Handler provides read-only HTTP endpoints over the decision ledger
type Handler struct {
	ledger *Ledger
}

// NewHandler creates a new proof ledger handler
func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

// RegisterRoutes sets up proof endpoints
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/proofs", h.ListRecords)
	r.GET("/proofs/:id", h.GetRecord)
	r.GET("/proofs/:id/verify", h.VerifyRecord)
}

// GetRecord returns a single decision record.
// GET /v1/proofs/:id
func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.ledger.Fetch(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "No decision record with this ID",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to load decision record",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"proof": rec})
}

// VerifyRecord re-checks a record's evidence sufficiency and freshness.
// GET /v1/proofs/:id/verify
func (h *Handler) VerifyRecord(c *gin.Context) {
	rec, err := h.ledger.Verify(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"proof": rec,
		})
	case errors.Is(err, ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "No decision record with this ID",
		})
	case errors.Is(err, ErrInsufficientEvidence), errors.Is(err, ErrStaleProof):
		c.JSON(http.StatusOK, gin.H{
			"valid":  false,
			"reason": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to verify decision record",
		})
	}
}

// ListRecords returns recent decision records for a subject, newest first.
// GET /v1/proofs?subject=0x...&limit=50&cursor=...
func (h *Handler) ListRecords(c *gin.Context) {
	subject := strings.ToLower(c.Query("subject"))
	if subject == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_subject",
			"message": "subject query parameter is required",
		})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_limit",
				"message": "limit must be an integer between 1 and 500",
			})
			return
		}
		limit = n
	}

	before, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_cursor",
			"message": "cursor is not a valid pagination token",
		})
		return
	}

	records, next, more, err := h.ledger.HistoryPage(c.Request.Context(), subject, before, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list decision records",
		})
		return
	}

	resp := gin.H{
		"proofs":  records,
		"count":   len(records),
		"hasMore": more,
	}
	if next != "" {
		resp["nextCursor"] = next
	}
	c.JSON(http.StatusOK, resp)
}
