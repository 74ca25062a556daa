package domain

// LineTotal is price minus the offer discount, never negative.
func LineTotal(priceCents, offerCents int64) int64 {
	if offerCents < 0 {
		offerCents = 0
	}
	v := priceCents - offerCents
	if v < 0 {
		return 0
	}
	return v
}

// PriceOrder sums LineTotal over items.
func PriceOrder(items []ServiceLineItem) Order {
	var total int64
	for _, it := range items {
		total += LineTotal(it.PriceCents, it.OfferPriceCents)
	}
	return Order{Items: items, TotalCents: total}
}

// ServicesTotal recomputes the total from persisted snapshots.
func ServicesTotal(services []ReservedService) int64 {
	var total int64
	for _, s := range services {
		total += LineTotal(s.PriceCents, s.OfferPriceCents)
	}
	return total
}

func Snapshot(items []ServiceLineItem) []ReservedService {
	out := make([]ReservedService, 0, len(items))
	for _, it := range items {
		out = append(out, ReservedService{
			ServiceID:       it.ID,
			Category:        it.Category,
			Name:            it.Name,
			PriceCents:      it.PriceCents,
			OfferPriceCents: it.OfferPriceCents,
		})
	}
	return out
}
