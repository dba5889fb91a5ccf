package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookshop-service/internal/domain"
)

const productColumns = "id, category_id, product_type, title, description, slug, regular_price, discount_price, is_active, created_at, updated_at"

func scanProduct(row interface{ Scan(...interface{}) error }) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.CategoryID, &p.ProductType, &p.Title, &p.Description, &p.Slug,
		&p.RegularPrice, &p.DiscountPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (category_id, product_type, title, description, slug, regular_price, discount_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + productColumns + `;`

	created, err := scanProduct(s.db.QueryRowContext(ctx, query,
		product.CategoryID, product.ProductType, product.Title, product.Description,
		product.Slug, product.RegularPrice, product.DiscountPrice, product.IsActive))
	if err != nil {
		if uniqueViolation(err, "products_slug_key", "Key (slug)") {
			return nil, ErrProductSlugExists
		}
		if foreignKeyViolation(err) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
	}
	return created, nil
}

// GetProductBySlug only ever returns active products; an inactive
// product is indistinguishable from a nonexistent one to callers.
func (s *PostgresStore) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1 AND is_active = TRUE;`
	product, err := scanProduct(s.db.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: GetProductBySlug failed to scan row: %w", err)
	}
	return product, nil
}

// ListActiveProducts returns active products newest-first. When a
// category id is given the result covers that category and all of its
// descendants, answered by a single range join on the nested-set index.
func (s *PostgresStore) ListActiveProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error) {
	if categoryID == nil {
		query := `SELECT ` + productColumns + ` FROM products WHERE is_active = TRUE ORDER BY created_at DESC;`
		return s.queryProducts(ctx, "ListActiveProducts", query)
	}

	node, err := s.GetCategoryByID(ctx, *categoryID)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + prefixedProductColumns("p") + `
		FROM products p
		JOIN categories c ON p.category_id = c.id
		WHERE p.is_active = TRUE AND c.lft >= $1 AND c.rgt <= $2
		ORDER BY p.created_at DESC;`
	return s.queryProducts(ctx, "ListActiveProducts", query, node.Lft, node.Rgt)
}

func (s *PostgresStore) ListProductImages(ctx context.Context, productID int64) ([]domain.ProductImage, error) {
	query := `
		SELECT id, product_id, image_url, alt_text, is_feature, created_at, updated_at
		FROM product_images
		WHERE product_id = $1
		ORDER BY is_feature DESC, id ASC;`
	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductImages failed to query images: %w", err)
	}
	defer rows.Close()

	images := []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.ProductID, &img.ImageURL, &img.AltText, &img.IsFeature, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: ListProductImages failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProductImages iteration error: %w", err)
	}
	return images, nil
}

// ToggleWishlist flips the customer's membership in the product's
// wishlist set and reports which branch was taken. Under a concurrent
// double-toggle from the same customer the last write wins, which is
// acceptable for this feature.
func (s *PostgresStore) ToggleWishlist(ctx context.Context, customerID, productID int64) (domain.WishlistAction, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2;`, customerID, productID)
	if err != nil {
		return "", fmt.Errorf("store: ToggleWishlist failed to delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("store: ToggleWishlist failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return domain.WishlistRemoved, nil
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO wishlist_items (customer_id, product_id) VALUES ($1, $2);`, customerID, productID); err != nil {
		if foreignKeyViolation(err) {
			return "", ErrProductNotFound
		}
		return "", fmt.Errorf("store: ToggleWishlist failed to insert: %w", err)
	}
	return domain.WishlistAdded, nil
}

func (s *PostgresStore) ListWishlist(ctx context.Context, customerID int64) ([]domain.Product, error) {
	query := `
		SELECT ` + prefixedProductColumns("p") + `
		FROM products p
		JOIN wishlist_items w ON w.product_id = p.id
		WHERE w.customer_id = $1 AND p.is_active = TRUE
		ORDER BY p.created_at DESC;`
	return s.queryProducts(ctx, "ListWishlist", query, customerID)
}

func prefixedProductColumns(alias string) string {
	return alias + ".id, " + alias + ".category_id, " + alias + ".product_type, " + alias + ".title, " +
		alias + ".description, " + alias + ".slug, " + alias + ".regular_price, " + alias + ".discount_price, " +
		alias + ".is_active, " + alias + ".created_at, " + alias + ".updated_at"
}

func (s *PostgresStore) queryProducts(ctx context.Context, op, query string, args ...interface{}) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: %s failed to query products: %w", op, err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.ProductType, &p.Title, &p.Description, &p.Slug,
			&p.RegularPrice, &p.DiscountPrice, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: %s failed to scan product row: %w", op, err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: %s iteration error: %w", op, err)
	}
	return products, nil
}
