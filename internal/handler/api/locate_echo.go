package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"BorrowDesk/internal/domain/models"
	domrepo "BorrowDesk/internal/domain/repository"
	"BorrowDesk/internal/service/ratelimit"
	"BorrowDesk/internal/usecase"
	xhttp "BorrowDesk/pkg/http"
	xlogger "BorrowDesk/pkg/logger"
	"BorrowDesk/pkg/util"
)

// RateLimitConfig caps locate requests per client.
type RateLimitConfig struct {
	Capacity     float64
	RefillPerSec float64
}

// LocateEchoHandler exposes the borrow-pricing pipeline over HTTP.
type LocateEchoHandler struct {
	logger   *xlogger.Logger
	locates  *usecase.LocateService
	auditLog domrepo.AuditLog
	limiter  *ratelimit.Limiter
	rlCfg    RateLimitConfig
}

func NewLocateEchoHandler(logger *xlogger.Logger, locates *usecase.LocateService, auditLog domrepo.AuditLog, limiter *ratelimit.Limiter, rlCfg RateLimitConfig) *LocateEchoHandler {
	return &LocateEchoHandler{
		logger:   logger,
		locates:  locates,
		auditLog: auditLog,
		limiter:  limiter,
		rlCfg:    rlCfg,
	}
}

func (h *LocateEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/locate", h.Locate)
	g.GET("/audit", h.Audit)
	g.GET("/health", h.Health)
}

// Locate prices one borrow request.
func (h *LocateEchoHandler) Locate(c echo.Context) error {
	req := &models.LocateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	if h.limiter != nil && !h.limiter.Allow(req.ClientID, h.rlCfg.Capacity, h.rlCfg.RefillPerSec) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded for client"))
	}

	position, err := decimal.NewFromString(req.PositionValue)
	if err != nil {
		return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
			Code:    "ERR_DECIMAL",
			Field:   "position_value",
			Message: "position_value must be a decimal number",
		}})
	}

	res, err := h.locates.Calculate(c.Request().Context(), models.CalculationRequest{
		Ticker:        req.Ticker,
		PositionValue: position,
		LoanDays:      req.LoanDays,
		ClientID:      req.ClientID,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Audit lists audit records, newest first.
func (h *LocateEchoHandler) Audit(c echo.Context) error {
	req := &models.AuditQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	filter := domrepo.AuditQueryFilter{
		Ticker:   req.Ticker,
		ClientID: req.ClientID,
		From:     util.ParseTimeDefault(req.From, time.Time{}),
		To:       util.ParseTimeDefault(req.To, time.Time{}),
		Limit:    req.Limit,
	}

	rows, err := h.auditLog.ListAudits(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("audit query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

// Health reports liveness.
func (h *LocateEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *LocateEchoHandler) mapError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
	case errors.Is(err, models.ErrNotFound):
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	case errors.Is(err, models.ErrAuditWriteFailed):
		h.logger.Error("locate audit failure", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("calculation could not be audited"))
	default:
		h.logger.Error("locate usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
}
