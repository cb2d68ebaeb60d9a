package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"
)

// /parts-issues の払出ワークフローAPI
type PartsIssueHandler struct {
	uc *usecase.PartsIssueUsecase
}

func NewPartsIssueHandler(uc *usecase.PartsIssueUsecase) *PartsIssueHandler {
	return &PartsIssueHandler{uc: uc}
}

type IssueItemRequest struct {
	PartID       *int64  `json:"part_id"`
	PartNumber   string  `json:"part_number"`
	PartName     string  `json:"part_name"`
	RequestedQty float64 `json:"requested_qty" validate:"gt=0"`
}

type IssueCreateRequest struct {
	ToServiceCenterID int64              `json:"to_service_center_id" validate:"required,gt=0"`
	PurchaseOrderID   *int64             `json:"purchase_order_id"`
	Priority          string             `json:"priority" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	Items             []IssueItemRequest `json:"items" validate:"required,min=1,dive"`
}

type IssueRejectRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

type LineApprovalRequest struct {
	LineID      int64   `json:"line_id" validate:"required,gt=0"`
	ApprovedQty float64 `json:"approved_qty" validate:"gte=0"`
}

type CIMApproveRequest struct {
	Items []LineApprovalRequest `json:"items" validate:"dive"`
}

type DispatchItemRequest struct {
	LineID   int64   `json:"line_id" validate:"required,gt=0"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
}

type DispatchRequest struct {
	Items []DispatchItemRequest `json:"items" validate:"required,min=1,dive"`

	//運送情報。中身は検証せずそのまま保存する
	TransportDetails json.RawMessage `json:"transport_details"`
}

type ReceiveItemRequest struct {
	LineID      int64   `json:"line_id" validate:"required,gt=0"`
	ReceivedQty float64 `json:"received_qty" validate:"gt=0"`
}

type ReceiveRequest struct {
	Items []ReceiveItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (h *PartsIssueHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/parts-issues")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.detail)

	g.POST("/:id/reject", h.reject,
		middleware.RequireRoles(string(model.RoleCIM), string(model.RoleAdmin)))
	g.POST("/:id/cim-approve", h.cimApprove,
		middleware.RequireRoles(string(model.RoleCIM), string(model.RoleAdmin)))
	g.POST("/:id/admin-approve", h.adminApprove,
		middleware.RequireRoles(string(model.RoleAdmin)))
	g.POST("/:id/dispatch", h.dispatch,
		middleware.RequireRoles(string(model.RoleCIM), string(model.RoleAdmin)))
	g.POST("/:id/receive", h.receive,
		middleware.RequireRoles(string(model.RoleServiceCenter), string(model.RoleAdmin)))
}

func (h *PartsIssueHandler) create(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req IssueCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	items := make([]usecase.CreateIssueItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.CreateIssueItemInput{
			PartID:       it.PartID,
			PartNumber:   it.PartNumber,
			PartName:     it.PartName,
			RequestedQty: it.RequestedQty,
		})
	}

	out, err := h.uc.CreateRequest(c.Request().Context(), actor, usecase.CreateIssueInput{
		ToServiceCenterID: req.ToServiceCenterID,
		PurchaseOrderID:   req.PurchaseOrderID,
		Priority:          req.Priority,
		Items:             items,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *PartsIssueHandler) list(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

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

	in := usecase.ListIssuesInput{
		Page:   page,
		Limit:  limit,
		Status: c.QueryParam("status"),
	}
	if v := c.QueryParam("to_service_center_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid to_service_center_id"})
		}
		in.ToServiceCenterID = &id
	}

	out, err := h.uc.ListRequests(c.Request().Context(), actor, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PartsIssueHandler) detail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.GetRequest(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PartsIssueHandler) reject(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req IssueRejectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	out, err := h.uc.RejectRequest(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PartsIssueHandler) cimApprove(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req CIMApproveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	items := make([]usecase.LineApprovalInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.LineApprovalInput{LineID: it.LineID, ApprovedQty: it.ApprovedQty})
	}

	out, err := h.uc.ApproveByCIM(c.Request().Context(), actor, id, items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PartsIssueHandler) adminApprove(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.uc.ApproveByAdmin(c.Request().Context(), actor, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PartsIssueHandler) dispatch(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req DispatchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	items := make([]usecase.DispatchItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.DispatchItemInput{LineID: it.LineID, Quantity: it.Quantity})
	}

	out, err := h.uc.Dispatch(c.Request().Context(), actor, id, items, req.TransportDetails)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *PartsIssueHandler) receive(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req ReceiveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	items := make([]usecase.ReceiveItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, usecase.ReceiveItemInput{LineID: it.LineID, ReceivedQty: it.ReceivedQty})
	}

	out, err := h.uc.Receive(c.Request().Context(), actor, id, items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
