// File: bookshop-service/internal/store/postgres_product_test.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"bookshop-service/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "category_id", "product_type", "title", "description",
		"slug", "regular_price", "discount_price", "is_active", "created_at", "updated_at"})
}

func TestPostgresStore_CreateProduct_SlugExists(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	product := &domain.Product{
		CategoryID:    int64(2),
		ProductType:   "book",
		Title:         "The Dispossessed",
		Slug:          "the-dispossessed",
		RegularPrice:  decimal.RequireFromString("12.99"),
		DiscountPrice: decimal.RequireFromString("9.99"),
		IsActive:      true,
	}

	query := regexp.QuoteMeta(`INSERT INTO products (category_id, product_type, title, description, slug, regular_price, discount_price, is_active)`)
	pqErr := &pq.Error{Code: "23505", Constraint: "products_slug_key"}
	mock.ExpectQuery(query).
		WithArgs(product.CategoryID, product.ProductType, product.Title, product.Description,
			product.Slug, product.RegularPrice, product.DiscountPrice, product.IsActive).
		WillReturnError(pqErr)

	created, err := store.CreateProduct(context.Background(), product)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductSlugExists), "Error should be ErrProductSlugExists")
	assert.Nil(t, created)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductBySlug_InactiveIsNotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	// The query filters on is_active, so an inactive product scans no
	// rows at all.
	query := regexp.QuoteMeta(`SELECT ` + productColumns + ` FROM products WHERE slug = $1 AND is_active = TRUE;`)
	mock.ExpectQuery(query).WithArgs("retired-title").WillReturnError(sql.ErrNoRows)

	product, err := store.GetProductBySlug(context.Background(), "retired-title")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")
	assert.Nil(t, product)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListActiveProducts_All(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	query := regexp.QuoteMeta(`SELECT ` + productColumns + ` FROM products WHERE is_active = TRUE ORDER BY created_at DESC;`)
	mock.ExpectQuery(query).WillReturnRows(productRows().
		AddRow(int64(1), int64(2), "book", "The Dispossessed", "", "the-dispossessed",
			"12.99", "9.99", true, now, now).
		AddRow(int64(2), int64(3), "book", "A Wizard of Earthsea", "", "a-wizard-of-earthsea",
			"10.00", "8.50", true, now, now))

	products, err := store.ListActiveProducts(context.Background(), nil)

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "The Dispossessed", products[0].Title)
	assert.True(t, products[0].RegularPrice.Equal(decimal.RequireFromString("12.99")))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListActiveProducts_ByCategoryIncludesDescendants(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	booksID := int64(1)

	// The category's range is read first, then products are matched
	// against the whole range so descendant categories are included.
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT `+categoryColumns+` FROM categories WHERE id = $1;`)).
		WithArgs(booksID).
		WillReturnRows(categoryRows().AddRow(booksID, "Books", "books", nil, int64(1), int64(6), int32(0), true))

	rangeQuery := regexp.QuoteMeta(`WHERE p.is_active = TRUE AND c.lft >= $1 AND c.rgt <= $2`)
	mock.ExpectQuery(rangeQuery).WithArgs(int64(1), int64(6)).
		WillReturnRows(productRows().
			AddRow(int64(5), int64(3), "book", "Nested Under Science Fiction", "", "nested-under-science-fiction",
				"15.00", "15.00", true, now, now))

	products, err := store.ListActiveProducts(context.Background(), &booksID)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, int64(3), products[0].CategoryID, "Product from a descendant category should be included")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ToggleWishlist_Adds(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	// Nothing to delete, so the toggle inserts.
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2;`)).
		WithArgs(int64(1), int64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wishlist_items (customer_id, product_id) VALUES ($1, $2);`)).
		WithArgs(int64(1), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	action, err := store.ToggleWishlist(context.Background(), 1, 5)

	require.NoError(t, err)
	assert.Equal(t, domain.WishlistAdded, action)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ToggleWishlist_Removes(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2;`)).
		WithArgs(int64(1), int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	action, err := store.ToggleWishlist(context.Background(), 1, 5)

	require.NoError(t, err)
	assert.Equal(t, domain.WishlistRemoved, action)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ToggleWishlist_ProductMissing(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM wishlist_items WHERE customer_id = $1 AND product_id = $2;`)).
		WithArgs(int64(1), int64(999)).WillReturnResult(sqlmock.NewResult(0, 0))
	pqErr := &pq.Error{Code: "23503", Constraint: "wishlist_items_product_id_fkey"}
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO wishlist_items (customer_id, product_id) VALUES ($1, $2);`)).
		WithArgs(int64(1), int64(999)).WillReturnError(pqErr)

	action, err := store.ToggleWishlist(context.Background(), 1, 999)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound), "Error should be ErrProductNotFound")
	assert.Empty(t, action)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListWishlist(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	query := regexp.QuoteMeta(`JOIN wishlist_items w ON w.product_id = p.id`)
	mock.ExpectQuery(query).WithArgs(int64(1)).
		WillReturnRows(productRows().
			AddRow(int64(5), int64(3), "book", "The Dispossessed", "", "the-dispossessed",
				"12.99", "9.99", true, now, now))

	products, err := store.ListWishlist(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "the-dispossessed", products[0].Slug)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListOrders(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	now := time.Now().Truncate(time.Millisecond)
	query := regexp.QuoteMeta(`WHERE customer_id = $1 AND billing_status = TRUE`)
	rows := sqlmock.NewRows([]string{"id", "customer_id", "total_paid", "billing_status", "created_at"}).
		AddRow(int64(10), int64(1), "34.97", true, now)
	mock.ExpectQuery(query).WithArgs(int64(1)).WillReturnRows(rows)

	orders, err := store.ListOrders(context.Background(), 1)

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.True(t, orders[0].TotalPaid.Equal(decimal.RequireFromString("34.97")))
	assert.True(t, orders[0].BillingStatus)

	require.NoError(t, mock.ExpectationsWereMet())
}
