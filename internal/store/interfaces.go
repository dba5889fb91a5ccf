package store

import (
	"context"

	"bookshop-service/internal/domain"

	"github.com/google/uuid"
)

// CustomerStorer defines the database operations for customer identities.
type CustomerStorer interface {
	CreateCustomer(ctx context.Context, email, username, passwordHash string) (*domain.Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	GetCustomerByEmail(ctx context.Context, email string) (*domain.Customer, error)
	SetCustomerActive(ctx context.Context, id int64, active bool) error
	SetCustomerPassword(ctx context.Context, id int64, passwordHash string) error
	TouchLastLogin(ctx context.Context, id int64) error
	UpdateCustomerUsername(ctx context.Context, id int64, username string) (*domain.Customer, error)
}

// AddressStorer defines the database operations for the address book.
// Every operation is scoped by the owning customer's id; an address that
// belongs to someone else is indistinguishable from a missing one.
type AddressStorer interface {
	ListAddresses(ctx context.Context, customerID int64) ([]domain.Address, error)
	GetAddress(ctx context.Context, customerID int64, id uuid.UUID) (*domain.Address, error)
	CreateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
	UpdateAddress(ctx context.Context, address *domain.Address) (*domain.Address, error)
	DeleteAddress(ctx context.Context, customerID int64, id uuid.UUID) error
	SetDefaultAddress(ctx context.Context, customerID int64, id uuid.UUID) error
}

// CategoryStorer defines the database operations for the category tree.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, name string, parentID *int64) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CategoryDescendants(ctx context.Context, id int64, includeSelf bool) ([]domain.Category, error)
	CategoryAncestors(ctx context.Context, id int64) ([]domain.Category, error)
	ReparentCategory(ctx context.Context, id, newParentID int64) error
	DeleteCategory(ctx context.Context, id int64) error
}

// ProductStorer defines the database operations for the catalog and
// wishlists.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListActiveProducts(ctx context.Context, categoryID *int64) ([]domain.Product, error)
	ListProductImages(ctx context.Context, productID int64) ([]domain.ProductImage, error)
	ToggleWishlist(ctx context.Context, customerID, productID int64) (domain.WishlistAction, error)
	ListWishlist(ctx context.Context, customerID int64) ([]domain.Product, error)
}

// OrderStorer defines the database operations for order listing. Order
// creation belongs to the checkout flow outside this service.
type OrderStorer interface {
	ListOrders(ctx context.Context, customerID int64) ([]domain.Order, error)
}
