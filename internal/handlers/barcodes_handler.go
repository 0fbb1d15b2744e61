package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"pim-service/internal/models"
	"pim-service/internal/repository"
)

// BarcodesHandler administers the pre-provisioned GS1 barcode pool
type BarcodesHandler struct {
	repo   *repository.CatalogRepository
	logger *logrus.Entry
}

func NewBarcodesHandler(repo *repository.CatalogRepository, logger *logrus.Logger) *BarcodesHandler {
	return &BarcodesHandler{
		repo:   repo,
		logger: logger.WithField("component", "barcodes-handler"),
	}
}

// LoadPool adds codes to the pool, ignoring duplicates
// POST /api/v1/barcodes/pool
func (h *BarcodesHandler) LoadPool(c *gin.Context) {
	var req models.LoadPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	added, err := h.repo.LoadPoolCodes(c.Request.Context(), req.Codes)
	if err != nil {
		h.logger.WithError(err).Error("failed to load barcode pool")
		respondError(c, http.StatusInternalServerError, "LOAD_FAILED", "failed to load barcode pool")
		return
	}

	h.logger.WithField("added", added).Info("barcode pool loaded")
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: gin.H{
		"submitted": len(req.Codes),
		"added":     added,
	}})
}

// PoolStatus reports total, used and available pool counts
// GET /api/v1/barcodes/pool
func (h *BarcodesHandler) PoolStatus(c *gin.Context) {
	total, used, err := h.repo.PoolStats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to read barcode pool stats")
		respondError(c, http.StatusInternalServerError, "STATS_FAILED", "failed to read barcode pool stats")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: gin.H{
		"total":     total,
		"used":      used,
		"available": total - used,
	}})
}
