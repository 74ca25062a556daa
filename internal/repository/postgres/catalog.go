package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirinyoku/venue-go/internal/domain"
)

type CatalogRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CatalogRepo) With(db DB) *CatalogRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CatalogRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *CatalogRepo) GetResource(ctx context.Context, id int64) (domain.Resource, error) {
	const op = "postgres.CatalogRepo.GetResource"

	var res domain.Resource
	err := r.handle().QueryRow(ctx,
		`SELECT id, title, address, is_active FROM resources WHERE id = $1`,
		id,
	).Scan(&res.ID, &res.Title, &res.Address, &res.IsActive)
	if err != nil {
		return domain.Resource{}, wrapDBErr(op, err)
	}

	return res, nil
}

func (r *CatalogRepo) EventTypeExists(ctx context.Context, id int64) (bool, error) {
	const op = "postgres.CatalogRepo.EventTypeExists"
	return r.exists(ctx, op, `SELECT EXISTS (SELECT 1 FROM event_types WHERE id = $1)`, id)
}

func (r *CatalogRepo) UserExists(ctx context.Context, id int64) (bool, error) {
	const op = "postgres.CatalogRepo.UserExists"
	return r.exists(ctx, op, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id)
}

func (r *CatalogRepo) exists(ctx context.Context, op, query string, id int64) (bool, error) {
	var ok bool
	if err := r.handle().QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, wrapDBErr(op, err)
	}
	return ok, nil
}

// ServiceItems loads the line items among ids that belong to resourceID.
// Ids from other resources are silently absent from the result.
func (r *CatalogRepo) ServiceItems(ctx context.Context, resourceID int64, ids []int64) ([]domain.ServiceLineItem, error) {
	const op = "postgres.CatalogRepo.ServiceItems"

	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.handle().Query(ctx,
		`SELECT id, resource_id, category, name, price_cents, offer_price_cents
		 FROM service_items
		 WHERE resource_id = $1 AND id = ANY($2)`,
		resourceID, ids,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var out []domain.ServiceLineItem
	for rows.Next() {
		var (
			it       domain.ServiceLineItem
			category string
		)
		if err := rows.Scan(&it.ID, &it.ResourceID, &category, &it.Name, &it.PriceCents, &it.OfferPriceCents); err != nil {
			return nil, wrapDBErr(op, err)
		}
		it.Category = domain.ServiceCategory(category)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return out, nil
}
