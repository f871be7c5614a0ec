package notify

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// GET /notifications
func (h *Handler) ListMine(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	items, err := h.repo.ListByRecipient(c.Request().Context(), uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not fetch notifications"})
	}
	if items == nil {
		items = []Item{}
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": items})
}

// POST /notifications/:id/read
func (h *Handler) MarkRead(c echo.Context) error {
	uid, ok := c.Get("user_id").(string)
	if !ok || uid == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing notification id"})
	}

	ok, err := h.repo.MarkRead(c.Request().Context(), uid, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update notification"})
	}
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "notification marked read"})
}
