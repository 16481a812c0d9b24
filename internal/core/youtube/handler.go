package youtube

import (
	"context"

	"foodtube/internal/logger"
	"foodtube/internal/utils/httputil"

	"github.com/gofiber/fiber/v2"
)

type TokenProvider interface {
	GetAccessToken(ctx context.Context, userID string) (string, error)
}

type Handler struct {
	client *Client
	tokens TokenProvider
	log    *logger.Logger
}

func NewHandler(client *Client, tokens TokenProvider) *Handler {
	return &Handler{client: client, tokens: tokens, log: logger.New("PlaylistHandler")}
}

// HandleListPlaylists serves GET /v1/playlists.
func (h *Handler) HandleListPlaylists(c *fiber.Ctx) error {
	userID := httputil.UserID(c)
	token, err := h.tokens.GetAccessToken(c.UserContext(), userID)
	if err != nil {
		return httputil.Fail(c, fiber.StatusUnauthorized, "no youtube access token, please sign in again")
	}

	playlists, err := h.client.ListUserCollections(c.UserContext(), token)
	if err != nil {
		h.log.LogErrorf("list playlists for %s: %v", userID, err)
		return httputil.Fail(c, fiber.StatusInternalServerError, "could not load playlists")
	}
	return c.JSON(fiber.Map{"playlists": playlists})
}
