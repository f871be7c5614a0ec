package admin

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Stats are the admin dashboard entity counts.
type Stats struct {
	Users         int `json:"users"`
	Orders        int `json:"orders"`
	Reviews       int `json:"reviews"`
	Payments      int `json:"payments"`
	Notifications int `json:"notifications"`
}

type StatsStore interface {
	Stats(ctx context.Context) (*Stats, error)
}

// GET /admin/stats
func (h *Handler) DashboardStats(c echo.Context) error {
	st, err := h.stats.Stats(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load stats"})
	}
	return c.JSON(http.StatusOK, st)
}
