package repository

import (
	"context"

	"github.com/saeid-a/FitOnboardBack/internal/models"
)

type CatalogFilter struct {
	Kind   string
	Search string
	Limit  int
	Offset int
}

type CatalogRepository struct {
	db DBTX
}

func NewCatalogRepository(db DBTX) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListByKind returns one page of a catalog and the total number of matches.
// An empty Search matches every item of the kind.
func (r *CatalogRepository) ListByKind(ctx context.Context, filter CatalogFilter) ([]models.CatalogItem, int, error) {
	totalQuery := `
		SELECT COUNT(*)
		FROM catalog_items
		WHERE kind = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%')
	`

	var total int
	if err := r.db.QueryRow(ctx, totalQuery, filter.Kind, filter.Search).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, kind, name, sort_order
		FROM catalog_items
		WHERE kind = $1 AND ($2 = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY sort_order ASC, name ASC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, filter.Kind, filter.Search, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]models.CatalogItem, 0)
	for rows.Next() {
		var item models.CatalogItem
		if err := rows.Scan(&item.ID, &item.Kind, &item.Name, &item.SortOrder); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
