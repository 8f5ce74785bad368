package rewards

import (
	"fmt"
	"strings"
)

// =============================================================================
// CATALOG
// =============================================================================

// Catalog holds redeem options and promotions. It is read-only after
// construction and safe for concurrent use.
type Catalog struct {
	Options []RedeemOption `json:"options" toml:"options"`
	Promos  []Promo        `json:"promos" toml:"promos"`
}

// Option looks up a redeem option by id.
func (c *Catalog) Option(id string) (RedeemOption, error) {
	for _, o := range c.Options {
		if o.ID == id {
			return o, nil
		}
	}
	return RedeemOption{}, fmt.Errorf("%w: %q", ErrUnknownOption, id)
}

// Promo looks up a promotion by id.
func (c *Catalog) Promo(id string) (Promo, error) {
	for _, p := range c.Promos {
		if p.ID == id {
			return p, nil
		}
	}
	return Promo{}, fmt.Errorf("%w: %q", ErrUnknownPromo, id)
}

// ParseCategory maps a query value to a Category. Empty means All.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case "", CategoryAll:
		return CategoryAll, nil
	case CategoryFood, CategoryFashion:
		return Category(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// FilterPromos returns promotions in category whose brand or title
// contains search, case-insensitively. Catalog order is kept.
func (c *Catalog) FilterPromos(category Category, search string) []Promo {
	needle := strings.ToLower(search)
	out := []Promo{}
	for _, p := range c.Promos {
		if category != CategoryAll && category != "" && p.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(p.Brand), needle) &&
			!strings.Contains(strings.ToLower(p.Title), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Affordable reports whether balance covers the promotion.
func (p Promo) Affordable(balance int64) bool {
	return balance >= p.PointsRequired
}

// Affordable reports whether balance covers the option.
func (o RedeemOption) Affordable(balance int64) bool {
	return balance >= o.PointsCost
}

// =============================================================================
// DEFAULT CATALOG
// =============================================================================

// DefaultCatalog returns the demo catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Options: []RedeemOption{
			{ID: "discount10", Title: "10% Discount", Description: "Get 10% off your next purchase", PointsCost: 500, Available: true},
			{ID: "freeCoffee", Title: "Free Coffee", Description: "Redeem for a free coffee at participating stores", PointsCost: 300, Available: true},
			{ID: "vipUpgrade", Title: "VIP Membership", Description: "Upgrade to VIP status for 30 days", PointsCost: 2000, Available: true},
		},
		Promos: []Promo{
			// F&B
			{ID: "starbucks-bogo", Brand: "Starbucks", Logo: "/brands/starbucks.svg", Category: CategoryFood,
				Title: "Buy 1 Get 1 Free Latte", Description: "Enjoy a free latte with every purchase. Valid at all outlets.", PointsRequired: 500},
			{ID: "mcd-fries", Brand: "McDonald's", Logo: "/brands/mcdonalds.svg", Category: CategoryFood,
				Title: "Free Fries with Any Burger", Description: "Redeem for a free medium fries with any burger purchase.", PointsRequired: 350},
			{ID: "kfc-bucket", Brand: "KFC", Logo: "/brands/kfc.svg", Category: CategoryFood,
				Title: "20% Off Family Bucket", Description: "Get 20% off a Family Bucket with this promo.", PointsRequired: 800},
			{ID: "bk-whopper", Brand: "Burger King", Logo: "/brands/burgerking.svg", Category: CategoryFood,
				Title: "Whopper Meal for 700 FP", Description: "Redeem a Whopper Meal for just 700 Flow Points.", PointsRequired: 700},
			// Fashion
			{ID: "nike-20off", Brand: "Nike", Logo: "/brands/nike.svg", Category: CategoryFashion,
				Title: "$20 Off Next Purchase", Description: "Save $20 on your next Nike purchase, in-store or online.", PointsRequired: 1500},
			{ID: "adidas-socks", Brand: "Adidas", Logo: "/brands/adidas.svg", Category: CategoryFashion,
				Title: "Exclusive Socks with Shoes", Description: "Get a pair of Adidas socks with any footwear purchase.", PointsRequired: 900},
			{ID: "uniqlo-10off", Brand: "Uniqlo", Logo: "/brands/uniqlo.svg", Category: CategoryFashion,
				Title: "10% Off Storewide", Description: "Enjoy 10% off all items at Uniqlo stores.", PointsRequired: 1000},
			{ID: "zara-gift", Brand: "Zara", Logo: "/brands/zara.svg", Category: CategoryFashion,
				Title: "$15 Gift Card", Description: "Redeem a $15 Zara gift card for shopping.", PointsRequired: 1200},
			{ID: "hm-tote", Brand: "H&M", Logo: "/brands/hm.svg", Category: CategoryFashion,
				Title: "Free Tote Bag with Purchase", Description: "Get a limited edition tote bag with any purchase.", PointsRequired: 800},
		},
	}
}
