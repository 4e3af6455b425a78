// Package handler provides the HTTP handlers of the prices feature.
package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"stock_pipeline/internal/feature/prices/domain/entity"
	"stock_pipeline/internal/feature/prices/transport/http/dto"
	"stock_pipeline/internal/feature/prices/usecase"
)

// PipelineUsecase runs the pipeline. Defined here, on the consumer side.
type PipelineUsecase interface {
	Run(ctx context.Context, req usecase.RunRequest) (*usecase.RunResult, error)
}

// SeriesUsecase reads a ticker's chart series.
type SeriesUsecase interface {
	GetSeries(ctx context.Context, location, ticker string) ([]entity.SeriesPoint, error)
}

// PricesHandler serves pipeline runs and chart reads.
type PricesHandler struct {
	pipeline        PipelineUsecase
	series          SeriesUsecase
	defaultLocation string
	allowed         map[string]struct{}
}

// NewPricesHandler creates a PricesHandler. defaultLocation is used when a request names none;
// a request may name only defaultLocation or one of allowed.
func NewPricesHandler(pipeline PipelineUsecase, series SeriesUsecase, defaultLocation string, allowed ...string) *PricesHandler {
	set := map[string]struct{}{defaultLocation: {}}
	for _, l := range allowed {
		set[l] = struct{}{}
	}
	return &PricesHandler{pipeline: pipeline, series: series, defaultLocation: defaultLocation, allowed: set}
}

// Run executes one pipeline run.
//
// POST /pipeline/run {"tickers":["RY.TO"],"start":"2024-01-01","end":"2024-06-30"}
func (h *PricesHandler) Run(c *gin.Context) {
	var req dto.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}

	start, err := entity.ParseDate(req.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("invalid start date %q", req.Start)})
		return
	}
	end, err := entity.ParseDate(req.End)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("invalid end date %q", req.End)})
		return
	}

	location, ok := h.location(req.Location)
	if !ok {
		h.rejectLocation(c, req.Location)
		return
	}

	res, err := h.pipeline.Run(c.Request.Context(), usecase.RunRequest{
		Tickers:  req.Tickers,
		Start:    start,
		End:      end,
		Location: location,
		Refresh:  req.Refresh,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewRunResponse(res.RunID, res.Summary, res.Loaded))
}

// GetSeries returns a ticker's persisted chart points ordered by date.
//
// GET /prices/:ticker/series?location=mini_pipeline.db
func (h *PricesHandler) GetSeries(c *gin.Context) {
	location, ok := h.location(c.Query("location"))
	if !ok {
		h.rejectLocation(c, c.Query("location"))
		return
	}

	points, err := h.series.GetSeries(c.Request.Context(), location, c.Param("ticker"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSeries(points))
}

// location resolves the requested storage location against the allow-list.
func (h *PricesHandler) location(requested string) (string, bool) {
	if requested == "" {
		return h.defaultLocation, true
	}
	_, ok := h.allowed[requested]
	return requested, ok
}

func (h *PricesHandler) rejectLocation(c *gin.Context, requested string) {
	slog.Warn("rejected storage location", "path", c.FullPath(), "client_ip", c.ClientIP())
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: fmt.Sprintf("location %q is not allowed", requested)})
}

func (h *PricesHandler) fail(c *gin.Context, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, dto.ErrorResponse{Error: err.Error()})
}

// StatusFor maps a usecase error to an HTTP status. Errors from the upstream
// price source that are not sentinels surface as 502.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrDataUnavailable):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
