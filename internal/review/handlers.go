package review

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

type createReviewRequest struct {
	Stars   int    `json:"stars"`
	Content string `json:"content"`
}

// POST /marketplace/orders/:id/review
func (h *Handler) Create(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id in URL"})
	}

	var req createReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	r, err := h.svc.Submit(c.Request().Context(), actor, orderID, req.Stars, req.Content)
	if err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"review_id": r.ID,
		"message":   "Review created successfully.",
	})
}

// GET /marketplace/orders/:id/review
func (h *Handler) GetForOrder(c echo.Context) error {
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	r, err := h.svc.GetForOrder(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return order.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"review": r})
}

// GET /providers/:id/reviews
func (h *Handler) ListForProvider(c echo.Context) error {
	providerID := c.Param("id")
	if providerID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing provider id"})
	}
	reviews, err := h.svc.ListForProvider(c.Request().Context(), providerID)
	if err != nil {
		return order.WriteError(c, err)
	}
	if reviews == nil {
		reviews = []Review{}
	}
	return c.JSON(http.StatusOK, echo.Map{"reviews": reviews})
}
