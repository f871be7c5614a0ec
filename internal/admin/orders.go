// Package admin is the administrative overlay: the admission gate that
// moves submitted orders into the visible queue (or rejects them), plus
// order maintenance and dashboard stats.
package admin

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/fixhub-io/fixhub/internal/order"
)

type Handler struct {
	orders *order.Service
	stats  StatsStore
}

func NewHandler(orders *order.Service, stats StatsStore) *Handler {
	return &Handler{orders: orders, stats: stats}
}

func actorFrom(c echo.Context) (order.Actor, bool) {
	uid, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if uid == "" {
		return order.Actor{}, false
	}
	return order.Actor{ID: uid, Role: role}, true
}

// POST /admin/orders/:id/approve
func (h *Handler) ApproveOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.orders.Approve(c.Request().Context(), actor, c.Param("id")); err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order approved and visible to providers."})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// POST /admin/orders/:id/reject
func (h *Handler) RejectOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := h.orders.Reject(c.Request().Context(), actor, c.Param("id"), req.Reason); err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order rejected."})
}

type updateOrderRequest struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	ServiceType *string          `json:"service_type"`
	Price       *decimal.Decimal `json:"price"`
	Location    *string          `json:"location"`
	Address     *string          `json:"address"`
	WindowStart *time.Time       `json:"window_start"`
	WindowEnd   *time.Time       `json:"window_end"`
}

// PATCH /admin/orders/:id
func (h *Handler) UpdateOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req updateOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	in := order.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		Address:     req.Address,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
	}
	if req.ServiceType != nil {
		st := order.ServiceType(*req.ServiceType)
		in.ServiceType = &st
	}
	if req.Location != nil {
		loc := order.Location(*req.Location)
		in.Location = &loc
	}

	o, err := h.orders.AdminUpdate(c.Request().Context(), actor, c.Param("id"), in)
	if err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o})
}

// DELETE /admin/orders/:id
func (h *Handler) DeleteOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.orders.AdminDelete(c.Request().Context(), actor, c.Param("id")); err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Order and its dependents deleted."})
}

// GET /admin/orders
func (h *Handler) ListOrders(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.orders.ListAll(c.Request().Context(), actor)
	if err != nil {
		return order.WriteError(c, err)
	}
	if orders == nil {
		orders = []order.Order{}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
