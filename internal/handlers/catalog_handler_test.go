package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/FitOnboardBack/internal/models"
	"github.com/saeid-a/FitOnboardBack/internal/repository"
)

type stubCatalogRepo struct {
	items      []models.CatalogItem
	total      int
	err        error
	lastFilter repository.CatalogFilter
}

func (r *stubCatalogRepo) ListByKind(_ context.Context, filter repository.CatalogFilter) ([]models.CatalogItem, int, error) {
	r.lastFilter = filter
	return r.items, r.total, r.err
}

func TestCatalogListsKnownKinds(t *testing.T) {
	repo := &stubCatalogRepo{items: []models.CatalogItem{{ID: 1, Kind: "equipment", Name: "Dumbbells"}}, total: 1}
	app := fiber.New()
	app.Get("/catalog/:kind", NewCatalogHandler(repo).List)

	resp, body := doJSON(t, app, http.MethodGet, "/catalog/equipment", "")
	if resp.StatusCode != http.StatusOK || repo.lastFilter.Kind != "equipment" {
		t.Fatalf("unexpected response %d %v", resp.StatusCode, body)
	}
	if items, ok := body["items"].([]any); !ok || len(items) != 1 {
		t.Fatalf("unexpected items %v", body)
	}
	if repo.lastFilter.Limit != defaultPageLimit || repo.lastFilter.Offset != 0 {
		t.Fatalf("unexpected default paging %+v", repo.lastFilter)
	}

	resp, _ = doJSON(t, app, http.MethodGet, "/catalog/cars", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown kind, got %d", resp.StatusCode)
	}

	repo.err = errors.New("db down")
	resp, _ = doJSON(t, app, http.MethodGet, "/catalog/foods", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

func TestCatalogPaginatesAndSearches(t *testing.T) {
	repo := &stubCatalogRepo{items: []models.CatalogItem{}, total: 11}
	app := fiber.New()
	app.Get("/catalog/:kind", NewCatalogHandler(repo).List)

	resp, body := doJSON(t, app, http.MethodGet, "/catalog/countries?page=2&limit=5&q=%20ger%20", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if repo.lastFilter.Search != "ger" || repo.lastFilter.Limit != 5 || repo.lastFilter.Offset != 5 {
		t.Fatalf("unexpected filter %+v", repo.lastFilter)
	}
	pagination, ok := body["pagination"].(map[string]any)
	if !ok || pagination["total"] != float64(11) || pagination["total_pages"] != float64(3) || pagination["page"] != float64(2) {
		t.Fatalf("unexpected pagination %v", body["pagination"])
	}

	doJSON(t, app, http.MethodGet, "/catalog/countries?limit=9999", "")
	if repo.lastFilter.Limit != maxPageLimit {
		t.Fatalf("expected limit clamped to %d, got %d", maxPageLimit, repo.lastFilter.Limit)
	}
}
