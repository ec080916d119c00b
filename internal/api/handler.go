// Package api serves a small local REST facade over the thermostat.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/zberg/go-ditraheat/internal/accessory"
	"github.com/zberg/go-ditraheat/pkg/ditraheat"
)

const (
	statusOK = "ok"

	errReadState     = "failed to read thermostat"
	errSetTarget     = "failed to set target temperature"
	errSetUnits      = "failed to set display units"
	errSessionExpiry = "session expired, retry"
	errSignIn        = "thermostat sign in rejected"
	errInvalidBody   = "invalid body: "

	requestIDHeader = "X-Request-ID"
)

// Handler wires HTTP routes to the accessory.
type Handler struct {
	th  *accessory.Thermostat
	log *slog.Logger
}

// NewHandler constructs a handler. log may be nil.
func NewHandler(th *accessory.Thermostat, log *slog.Logger) *Handler {
	return &Handler{th: th, log: log}
}

// InitRoutes builds the router.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestID)

	router.GET("/health", h.health)

	api := router.Group("/api/v1")
	{
		thermostat := api.Group("/thermostat")
		thermostat.GET("", h.getState)
		thermostat.PUT("/target_temperature", h.setTargetTemperature)
		thermostat.PUT("/display_units", h.setDisplayUnits)
	}

	return router
}

type targetRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

type unitsRequest struct {
	Units string `json:"units" binding:"required"`
}

// requestID tags each request so log lines can be correlated.
func (h *Handler) requestID(c *gin.Context) {
	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set("request_id", id)
	c.Header(requestIDHeader, id)
	c.Next()
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusOK})
}

func (h *Handler) getState(c *gin.Context) {
	st, err := h.th.Snapshot(c.Request.Context())
	if err != nil {
		h.upstreamError(c, errReadState, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) setTargetTemperature(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}

	if err := h.th.SetTargetTemperature(c.Request.Context(), *req.Value); err != nil {
		h.upstreamError(c, errSetTarget, err)
		return
	}
	h.respondWithState(c)
}

func (h *Handler) setDisplayUnits(c *gin.Context) {
	var req unitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	unit, err := ditraheat.ParseTemperatureUnit(req.Units)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}

	if err := h.th.SetTemperatureDisplayUnits(c.Request.Context(), accessory.UnitToDisplay(unit)); err != nil {
		h.upstreamError(c, errSetUnits, err)
		return
	}
	h.respondWithState(c)
}

// respondWithState answers a successful write with the fresh state when it
// can be read.
func (h *Handler) respondWithState(c *gin.Context) {
	resp := gin.H{"status": statusOK}
	if st, err := h.th.Snapshot(c.Request.Context()); err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// upstreamError logs err and answers 502; the caller's request was fine.
func (h *Handler) upstreamError(c *gin.Context, userMsg string, err error) {
	msg := userMsg
	switch {
	case ditraheat.IsUnauthorized(err):
		msg = errSessionExpiry
	case ditraheat.IsAuthError(err):
		msg = errSignIn
	}

	if h.log != nil {
		h.log.Error(strings.ReplaceAll(userMsg, " ", "_"),
			"request_id", c.GetString("request_id"),
			"error", err,
		)
	}

	code := http.StatusBadGateway
	if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		code = http.StatusGatewayTimeout
	}
	c.JSON(code, gin.H{"error": msg})
}
