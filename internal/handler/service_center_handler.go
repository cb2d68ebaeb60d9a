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

// /service-centers のセンター管理API
type ServiceCenterHandler struct {
	uc *usecase.ServiceCenterUsecase
}

func NewServiceCenterHandler(uc *usecase.ServiceCenterUsecase) *ServiceCenterHandler {
	return &ServiceCenterHandler{uc: uc}
}

type ServiceCenterCreateRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Code string `json:"code" validate:"required,max=20"`
	City string `json:"city" validate:"omitempty,max=100"`
}

func (h *ServiceCenterHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/service-centers")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("", h.list)
	g.GET("/:id/inventory", h.inventory)
	g.POST("", h.create, middleware.RequireRoles(string(model.RoleAdmin)))
}

func (h *ServiceCenterHandler) create(c echo.Context) error {
	var req ServiceCenterCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	out, err := h.uc.Create(c.Request().Context(), usecase.CreateServiceCenterInput{
		Name: req.Name,
		Code: req.Code,
		City: req.City,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ServiceCenterHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ServiceCenterHandler) inventory(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.ListInventory(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
