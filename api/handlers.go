package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"property-ingest/models"
	"property-ingest/parsers"
	"property-ingest/services"
	"property-ingest/utils"
)

// Handler serves the import endpoints.
type Handler struct {
	pipeline       *services.Pipeline
	maxUploadBytes int64
	logger         *utils.Logger
}

func NewHandler(pipeline *services.Pipeline, maxUploadBytes int64, logger *utils.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 20 << 20
	}
	return &Handler{pipeline: pipeline, maxUploadBytes: maxUploadBytes, logger: logger}
}

type soldRequest struct {
	Postcode string `json:"postcode" binding:"required"`
	Limit    int    `json:"limit"`
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ImportFile imports an uploaded CSV or spreadsheet sent as the multipart
// field "file". A file that cannot be parsed is rejected with 422.
func (h *Handler) ImportFile(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.ImportFile(c.Request.Context(), fh.Filename, data, variant(c))
	if err != nil {
		var perr *parsers.ParseError
		if errors.As(err, &perr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("[api] import %s: %v", fh.Filename, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// ImportRecords imports a JSON array of loosely keyed row objects.
func (h *Handler) ImportRecords(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	var objects []map[string]any
	if err := c.ShouldBindJSON(&objects); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON array of objects: " + err.Error()})
		return
	}

	rows := make([]models.RawRow, len(objects))
	for i, o := range objects {
		rows[i] = models.RawRow(o)
	}
	c.JSON(http.StatusOK, h.pipeline.ImportRecords(c.Request.Context(), rows, variant(c)))
}

// ImportSold fetches and imports sale records for a postcode.
func (h *Handler) ImportSold(c *gin.Context) {
	var req soldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.ImportSold(c.Request.Context(), req.Postcode, req.Limit)
	switch {
	case errors.Is(err, services.ErrNoSaleSource):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case err != nil:
		h.logger.Error("[api] sold import %s: %v", req.Postcode, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}

func variant(c *gin.Context) models.Variant {
	return models.ParseVariant(c.Query("variant"))
}
