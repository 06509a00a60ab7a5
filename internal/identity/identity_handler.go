package identity

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-leave/internal/shared/apperror"
	"go-leave/internal/shared/response"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("identity.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("identity.handler")
	}
	return &Handler{service: service, logger: l}
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("identity request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Create(c *gin.Context) {
	var req CreateEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http create employee validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", apperror.MapValidationError(err).Error())
		return
	}

	resp, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetAll(c *gin.Context) {
	resp, err := h.service.List(c.Request.Context())
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetById(c *gin.Context) {
	e, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, mapToEmployeeResponse(*e), nil)
}

// GrantAllotment tops up (or, with negative days, claws back) the
// remaining pool for one tracked category.
func (h *Handler) GrantAllotment(c *gin.Context) {
	employeeID := c.Param("id")

	var req GrantAllotmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("http grant allotment validation failed", zap.Error(err))
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", apperror.MapValidationError(err).Error())
		return
	}

	days, err := decimal.NewFromString(req.Days)
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input", "days must be a decimal number")
		return
	}

	year := req.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}

	if _, err := h.service.GetByID(c.Request.Context(), employeeID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	remaining, err := h.service.AdjustAllotment(c.Request.Context(), nil, employeeID, req.Category, days, year)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, AllotmentResponse{
		EmployeeID: employeeID,
		Category:   req.Category,
		Year:       year,
		Remaining:  remaining.String(),
	}, nil)
}
