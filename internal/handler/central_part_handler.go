package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"
)

// /central-parts のセントラル在庫台帳API
type CentralPartHandler struct {
	uc *usecase.CentralPartUsecase
}

func NewCentralPartHandler(uc *usecase.CentralPartUsecase) *CentralPartHandler {
	return &CentralPartHandler{uc: uc}
}

type PartCreateRequest struct {
	PartName      string  `json:"part_name" validate:"required,max=255"`
	PartNumber    *string `json:"part_number" validate:"omitempty,max=100"`
	StockQuantity float64 `json:"stock_quantity" validate:"gte=0"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
}

type PartDepositRequest struct {
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

func (h *CentralPartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/central-parts")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.list)
	g.GET("/:id", h.detail)

	g.POST("", h.create,
		middleware.RequireRoles(string(model.RoleCIM), string(model.RoleAdmin)))
	g.POST("/:id/deposit", h.deposit,
		middleware.RequireRoles(string(model.RoleCIM), string(model.RoleAdmin)))
}

func (h *CentralPartHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PartCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	out, err := h.uc.CreatePart(c.Request().Context(), actor, usecase.CreatePartInput{
		PartName:      req.PartName,
		PartNumber:    req.PartNumber,
		StockQuantity: req.StockQuantity,
		UnitPrice:     req.UnitPrice,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CentralPartHandler) deposit(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req PartDepositRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	out, err := h.uc.DepositStock(c.Request().Context(), actor, id, req.Quantity)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CentralPartHandler) list(c echo.Context) error {
	page := 1
	if v := c.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid page"})
		}
		page = n
	}
	limit := 20
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
		}
		limit = n
	}

	out, err := h.uc.ListParts(c.Request().Context(), usecase.ListPartsInput{
		Page:  page,
		Limit: limit,
		Q:     c.QueryParam("q"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CentralPartHandler) detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetPart(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
