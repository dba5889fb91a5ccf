package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is a node in the shop taxonomy. The tree is kept as a
// nested-set index: every node carries a [Lft, Rgt] range such that a
// node X is a descendant of Y exactly when Y.Lft < X.Lft && X.Rgt < Y.Rgt.
// Descendant queries are therefore a single range comparison instead of
// a recursive join; inserts and moves pay for that by shifting the
// ranges of the affected part of the tree.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Lft      int64  `json:"-"`
	Rgt      int64  `json:"-"`
	Depth    int32  `json:"depth"`
	IsActive bool   `json:"is_active"`
}

// IsDescendantOf reports whether c sits strictly inside other's range.
func (c *Category) IsDescendantOf(other *Category) bool {
	return other.Lft < c.Lft && c.Rgt < other.Rgt
}

// PriceMax is the upper bound for both product prices (NUMERIC(5,2)).
var PriceMax = decimal.NewFromFloat(999.99)

// Product is a catalog item. Slug is unique across the catalog and is
// the public identifier; inactive products are invisible to storefront
// lookups.
type Product struct {
	ID            int64           `json:"id"`
	CategoryID    int64           `json:"category_id"`
	ProductType   string          `json:"product_type"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Slug          string          `json:"slug"`
	RegularPrice  decimal.Decimal `json:"regular_price"`
	DiscountPrice decimal.Decimal `json:"discount_price"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ValidPrice reports whether p lies in the storable range [0.00, 999.99]
// with at most two decimal places.
func ValidPrice(p decimal.Decimal) bool {
	if p.IsNegative() || p.GreaterThan(PriceMax) {
		return false
	}
	return p.Exponent() >= -2
}

// ProductImage is owned by its product and removed with it.
type ProductImage struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"-"`
	ImageURL  string    `json:"image_url"`
	AltText   string    `json:"alt_text"`
	IsFeature bool      `json:"is_feature"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WishlistAction says which branch a wishlist toggle took.
type WishlistAction string

const (
	WishlistAdded   WishlistAction = "added"
	WishlistRemoved WishlistAction = "removed"
)
