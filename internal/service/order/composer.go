package order

import (
	"context"
	"fmt"

	"github.com/kirinyoku/venue-go/internal/domain"
	"github.com/kirinyoku/venue-go/internal/repository"
)

// Compose resolves selections against the resource's catalog and prices them.
// Categories outside the fixed set and empty id lists are skipped. Ids are
// deduplicated within a category. Items come back in category order, then in
// selection order. Nothing is persisted.
//
// Returns:
//   - error: InvalidSelectionError if an id is unknown, belongs to another
//     resource, or sits under a different category.
func Compose(
	ctx context.Context,
	catalog repository.Catalog,
	resourceID int64,
	selections domain.Selections,
) (domain.Order, error) {
	const op = "service.order.Compose"

	type pick struct {
		category domain.ServiceCategory
		id       int64
	}

	var (
		picks []pick
		ids   []int64
	)
	for _, category := range domain.Categories {
		seen := make(map[int64]struct{})
		for _, id := range selections[category] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			picks = append(picks, pick{category: category, id: id})
			ids = append(ids, id)
		}
	}

	if len(picks) == 0 {
		return domain.PriceOrder(nil), nil
	}

	found, err := catalog.ServiceItems(ctx, resourceID, ids)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s:%w", op, err)
	}

	byID := make(map[int64]domain.ServiceLineItem, len(found))
	for _, it := range found {
		byID[it.ID] = it
	}

	items := make([]domain.ServiceLineItem, 0, len(picks))
	for _, p := range picks {
		it, ok := byID[p.id]
		if !ok || it.ResourceID != resourceID || it.Category != p.category {
			return domain.Order{}, fmt.Errorf("%s:%w", op, InvalidSelectionError{Category: p.category, ServiceID: p.id})
		}
		items = append(items, it)
	}

	return domain.PriceOrder(items), nil
}
