package order

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func actorFrom(c echo.Context) (Actor, bool) {
	uid, _ := c.Get("user_id").(string)
	role, _ := c.Get("role").(string)
	if uid == "" {
		return Actor{}, false
	}
	return Actor{ID: uid, Role: role}, true
}

// WriteError maps domain errors onto stable JSON responses. Authorization
// failures on owner-scoped operations answer like a missing order, so the
// response does not reveal whether the order exists.
func WriteError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found or not yours"})
	case errors.Is(err, ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found"})
	case errors.Is(err, ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrInvalidTransition):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, ErrPreconditionFailed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	default:
		log.Printf("order: internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

type createOrderRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ServiceType string          `json:"service_type"`
	Price       decimal.Decimal `json:"price"`
	Location    string          `json:"location"`
	Address     string          `json:"address"`
	WindowStart time.Time       `json:"window_start"`
	WindowEnd   time.Time       `json:"window_end"`
}

// POST /marketplace/orders
func (h *Handler) Create(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	o, err := h.svc.Submit(c.Request().Context(), actor, SubmitInput{
		Title:       req.Title,
		Description: req.Description,
		ServiceType: ServiceType(req.ServiceType),
		Price:       req.Price,
		Location:    Location(req.Location),
		Address:     req.Address,
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
	})
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id": o.ID,
		"status":   o.Status,
		"message":  "Order submitted and awaiting review.",
	})
}

// GET /marketplace/orders/available
func (h *Handler) ListAvailable(c echo.Context) error {
	var f AvailableFilter
	f.Location = Location(c.QueryParam("location"))
	f.Keyword = c.QueryParam("keyword")
	if v := c.QueryParam("min_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid min_price"})
		}
		f.MinPrice = &d
	}
	if v := c.QueryParam("max_price"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid max_price"})
		}
		f.MaxPrice = &d
	}

	orders, err := h.svc.ListAvailable(c.Request().Context(), f)
	if err != nil {
		return WriteError(c, err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

func (h *Handler) transition(c echo.Context, action Action, reason string) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	o, err := h.svc.Transition(c.Request().Context(), actor, orderID, action, reason)
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"order_id":       o.ID,
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
	})
}

// POST /marketplace/orders/:id/accept
func (h *Handler) Accept(c echo.Context) error {
	return h.transition(c, ActionAccept, "")
}

// POST /marketplace/orders/:id/start
func (h *Handler) Start(c echo.Context) error {
	return h.transition(c, ActionStart, "")
}

// POST /marketplace/orders/:id/complete
func (h *Handler) Complete(c echo.Context) error {
	return h.transition(c, ActionComplete, "")
}

// POST /marketplace/orders/:id/cancel
func (h *Handler) Cancel(c echo.Context) error {
	return h.transition(c, ActionCancel, "")
}

// GET /marketplace/orders/:id
func (h *Handler) Get(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	o, err := h.svc.Get(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"order": o})
}

// GET /marketplace/orders
func (h *Handler) ListMine(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orders, err := h.svc.ListMine(c.Request().Context(), actor)
	if err != nil {
		return WriteError(c, err)
	}
	if orders == nil {
		orders = []Order{}
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}
