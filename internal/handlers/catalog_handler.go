package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/repository"
)

var catalogKinds = map[string]struct{}{
	"equipment": {},
	"foods":     {},
	"injuries":  {},
	"countries": {},
}

type catalogStore interface {
	ListByKind(ctx context.Context, filter repository.CatalogFilter) ([]models.CatalogItem, int, error)
}

type CatalogHandler struct {
	repo catalogStore
}

func NewCatalogHandler(repo catalogStore) *CatalogHandler {
	return &CatalogHandler{repo: repo}
}

// List serves GET /catalog/:kind?q=&page=&limit=
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	kind := c.Params("kind")
	if _, ok := catalogKinds[kind]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Unknown catalog"})
	}

	page, limit := pageParams(c)
	items, total, err := h.repo.ListByKind(c.Context(), repository.CatalogFilter{
		Kind:   kind,
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load catalog"})
	}
	return c.JSON(fiber.Map{
		"kind":       kind,
		"items":      items,
		"pagination": buildPaginationMeta(page, limit, total),
	})
}
