package restaurant

import (
	"errors"

	"foodtube/internal/logger"
	"foodtube/internal/utils/httputil"
	"foodtube/internal/utils/parser"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	store *Store
	log   *logger.Logger
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store, log: logger.New("RestaurantHandler")}
}

type listQuery struct {
	JobID string `form:"jobId"`
	Limit int    `form:"limit,default=500,max=1000"`
}

// HandleList serves GET /v1/restaurants.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	var q listQuery
	if err := parser.ParseQuery(c, &q); err != nil {
		return httputil.Fail(c, fiber.StatusBadRequest, err.Error())
	}

	rs, err := h.store.ListByUser(c.UserContext(), httputil.UserID(c), q.JobID, q.Limit)
	if err != nil {
		h.log.LogErrorf("list restaurants: %v", err)
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not load restaurants")
	}
	return c.JSON(fiber.Map{"restaurants": rs})
}

// HandleDelete serves DELETE /v1/restaurants/:id.
func (h *Handler) HandleDelete(c *fiber.Ctx) error {
	err := h.store.Delete(c.UserContext(), c.Params("id"), httputil.UserID(c))
	switch {
	case errors.Is(err, ErrNotFound):
		return httputil.Fail(c, fiber.StatusNotFound, "restaurant not found")
	case err != nil:
		h.log.LogErrorf("delete restaurant: %v", err)
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not delete restaurant")
	}
	return c.JSON(fiber.Map{"success": true})
}
