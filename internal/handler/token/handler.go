// Package token exposes the front-desk HTTP surface: patient intake,
// the records dashboard, consultation progress and billing.
package token

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinidesk/frontdesk-api/internal/handler"
	"github.com/clinidesk/frontdesk-api/internal/model"
	"github.com/clinidesk/frontdesk-api/internal/service/frontdesk"
	"github.com/clinidesk/frontdesk-api/pkg/errors"
)

type Handler struct {
	service frontdesk.Service
}

func NewHandler(service frontdesk.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	tokens := r.Group("/tokens")
	{
		tokens.POST("", h.CreateToken)
		tokens.GET("", h.ListTokens)
		tokens.GET("/counts", h.StatusCounts)
		tokens.GET("/:id", h.GetToken)
		tokens.POST("/:id/consultation/done", h.ConsultationDone)
		tokens.PATCH("/:id/status", h.ChangeStatus)
		tokens.POST("/:id/bills", h.CreateBill)
	}
}

func (h *Handler) CreateToken(c *gin.Context) {
	var req model.CreateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token, err := h.service.AssignToken(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(token))
}

func (h *Handler) ListTokens(c *gin.Context) {
	var filters model.TokenFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.service.ListTokens(c.Request.Context(), &filters)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) StatusCounts(c *gin.Context) {
	counts, err := h.service.StatusCounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(counts))
}

func (h *Handler) GetToken(c *gin.Context) {
	token, err := h.service.GetToken(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(token))
}

func (h *Handler) ConsultationDone(c *gin.Context) {
	token, err := h.service.MarkConsultationDone(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(token))
}

func (h *Handler) ChangeStatus(c *gin.Context) {
	var req model.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	token, err := h.service.ChangeStatus(c.Request.Context(), c.Param("id"), model.TokenStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(token))
}

func (h *Handler) CreateBill(c *gin.Context) {
	var req model.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	bill, err := h.service.CreateBill(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(bill))
}

func respondError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.StatusCode(), handler.NewErrorResponse(appErr.Message))
		return
	}
	c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
}
