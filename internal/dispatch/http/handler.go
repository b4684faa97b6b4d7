// Package http provides HTTP handlers for change event ingestion and dead-letter inspection.
package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/storefront/internal/cdc"
	"github.com/allisson/storefront/internal/dispatch/http/dto"
	dispatchUseCase "github.com/allisson/storefront/internal/dispatch/usecase"
	"github.com/allisson/storefront/internal/httputil"
)

// maxChangeEventBytes bounds the size of a single webhook message.
const maxChangeEventBytes = 1 << 20

// ChangeEventHandler receives Debezium change messages pushed over HTTP.
type ChangeEventHandler struct {
	routerUseCase dispatchUseCase.RouterUseCase
	logger        *slog.Logger
}

// NewChangeEventHandler creates a new change event handler.
func NewChangeEventHandler(routerUseCase dispatchUseCase.RouterUseCase, logger *slog.Logger) *ChangeEventHandler {
	return &ChangeEventHandler{
		routerUseCase: routerUseCase,
		logger:        logger,
	}
}

// IngestHandler decodes one Debezium message and routes it.
// POST /v1/cdc/debezium - Returns 202 Accepted once the resulting action, if any, is
// queued. Tombstones are accepted and ignored. A 5xx tells the sender to redeliver.
func (h *ChangeEventHandler) IngestHandler(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxChangeEventBytes))
	if err != nil {
		httputil.HandleBadRequestGin(c, fmt.Errorf("failed to read body: %w", err), h.logger)
		return
	}

	event, err := cdc.DecodeEnvelope(body)
	if errors.Is(err, cdc.ErrTombstone) {
		c.JSON(http.StatusAccepted, dto.ChangeEventResponse{Routed: false})
		return
	}
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	routed, err := h.routerUseCase.Route(c.Request.Context(), event)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.ChangeEventResponse{Routed: routed})
}

// DeadLetterHandler exposes dead-lettered actions.
type DeadLetterHandler struct {
	deadLetterUseCase dispatchUseCase.DeadLetterUseCase
	logger            *slog.Logger
}

// NewDeadLetterHandler creates a new dead letter handler.
func NewDeadLetterHandler(
	deadLetterUseCase dispatchUseCase.DeadLetterUseCase,
	logger *slog.Logger,
) *DeadLetterHandler {
	return &DeadLetterHandler{
		deadLetterUseCase: deadLetterUseCase,
		logger:            logger,
	}
}

// ListHandler lists dead letters, newest first.
// GET /v1/dead-letters?offset=0&limit=50
func (h *DeadLetterHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	deadLetters, err := h.deadLetterUseCase.List(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeadLettersToListResponse(deadLetters))
}
