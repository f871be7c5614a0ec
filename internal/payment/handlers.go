package payment

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fixhub-io/fixhub/internal/order"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func actorFrom(c echo.Context) (order.Actor, bool) {
	uid, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if uid == "" {
		return order.Actor{}, false
	}
	return order.Actor{ID: uid, Role: role}, true
}

// POST /marketplace/orders/:id/pay
func (h *Handler) Pay(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	p, err := h.svc.Pay(c.Request().Context(), actor, orderID)
	if err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"payment":        p,
		"transaction_id": p.TransactionID,
		"message":        "Payment successful.",
	})
}

// GET /marketplace/orders/:id/payment
func (h *Handler) GetForOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	p, err := h.svc.GetForOrder(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"payment": p})
}

// GET /provider/earnings
func (h *Handler) Earnings(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	total, err := h.svc.Earnings(c.Request().Context(), actor)
	if err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"total_earnings": total})
}
