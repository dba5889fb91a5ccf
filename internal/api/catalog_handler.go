package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"bookshop-service/internal/auth"
	"bookshop-service/internal/domain"
	"bookshop-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
)

// --- Product Handlers ---

// ListProducts returns active products, newest first. With a ?category=
// slug the listing narrows to that category and all of its descendants.
func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	var categoryID *int64
	if categorySlug := r.URL.Query().Get("category"); categorySlug != "" {
		category, err := h.categories.GetCategoryBySlug(r.Context(), categorySlug)
		if err != nil {
			if errors.Is(err, store.ErrCategoryNotFound) {
				respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
				return
			}
			log.Printf("ERROR: ListProducts failed to resolve category %q: %v", categorySlug, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
			return
		}
		categoryID = &category.ID
	}

	products, err := h.products.ListActiveProducts(r.Context(), categoryID)
	if err != nil {
		log.Printf("ERROR: ListProducts store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// GetProductBySlug returns one active product with its images. An
// inactive product answers 404 exactly like a missing one.
func (h *HTTPHandler) GetProductBySlug(w http.ResponseWriter, r *http.Request) {
	productSlug := chi.URLParam(r, "slug")

	product, err := h.products.GetProductBySlug(r.Context(), productSlug)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		log.Printf("ERROR: GetProductBySlug store operation for %q failed: %v", productSlug, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	images, err := h.products.ListProductImages(r.Context(), product.ID)
	if err != nil {
		log.Printf("ERROR: GetProductBySlug failed to load images for product %d: %v", product.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve product")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"product": product,
		"images":  images,
	})
}

// ProductCreateInput defines the expected input for creating a product.
type ProductCreateInput struct {
	CategoryID    int64  `json:"category_id" validate:"required,gt=0"`
	ProductType   string `json:"product_type" validate:"required,max=150"`
	Title         string `json:"title" validate:"required,max=150"`
	Description   string `json:"description"`
	RegularPrice  string `json:"regular_price" validate:"required"`
	DiscountPrice string `json:"discount_price" validate:"required"`
	IsActive      *bool  `json:"is_active"` // Pointer to distinguish between not set and false
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	regular, err := decimal.NewFromString(input.RegularPrice)
	if err != nil || !domain.ValidPrice(regular) {
		respondWithError(w, http.StatusBadRequest, "The price must be between 0 and 999.99")
		return
	}
	discount, err := decimal.NewFromString(input.DiscountPrice)
	if err != nil || !domain.ValidPrice(discount) {
		respondWithError(w, http.StatusBadRequest, "The price must be between 0 and 999.99")
		return
	}

	isActive := true // Default to true if not provided
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	product := &domain.Product{
		CategoryID:    input.CategoryID,
		ProductType:   input.ProductType,
		Title:         input.Title,
		Description:   input.Description,
		Slug:          slug.Make(input.Title),
		RegularPrice:  regular,
		DiscountPrice: discount,
		IsActive:      isActive,
	}

	created, err := h.products.CreateProduct(r.Context(), product)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrProductSlugExists):
			respondWithError(w, http.StatusConflict, store.ErrProductSlugExists.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusBadRequest, "Invalid category_id: category does not exist")
		default:
			log.Printf("ERROR: CreateProduct store operation failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		}
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// --- Wishlist Handlers ---

func (h *HTTPHandler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())
	products, err := h.products.ListWishlist(r.Context(), ac.CustomerID)
	if err != nil {
		log.Printf("ERROR: ListWishlist failed for customer %d: %v", ac.CustomerID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve wishlist")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// ToggleWishlist flips membership and reports which branch was taken so
// the UI can phrase its message.
func (h *HTTPHandler) ToggleWishlist(w http.ResponseWriter, r *http.Request) {
	ac := auth.FromContext(r.Context())

	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || productID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid product ID format")
		return
	}

	action, err := h.products.ToggleWishlist(r.Context(), ac.CustomerID, productID)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrProductNotFound.Error())
			return
		}
		log.Printf("ERROR: ToggleWishlist failed for customer %d, product %d: %v", ac.CustomerID, productID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to update wishlist")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"action": string(action)})
}

// --- Category Handlers ---

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		log.Printf("ERROR: ListCategories store operation failed: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

// CategoryCreateInput defines the expected input for creating a category.
type CategoryCreateInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	created, err := h.categories.CreateCategory(r.Context(), input.Name, input.ParentID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrCategoryNameExists):
			respondWithError(w, http.StatusConflict, store.ErrCategoryNameExists.Error())
		case errors.Is(err, store.ErrCategorySlugExists):
			respondWithError(w, http.StatusConflict, store.ErrCategorySlugExists.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusBadRequest, "Invalid parent_id: category does not exist")
		default:
			log.Printf("ERROR: CreateCategory store operation failed: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		}
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// ListCategoryProducts answers the category page: the category itself,
// its ancestor chain for breadcrumbs, and the descendant-inclusive
// active product listing.
func (h *HTTPHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	categorySlug := chi.URLParam(r, "slug")

	category, err := h.categories.GetCategoryBySlug(r.Context(), categorySlug)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		log.Printf("ERROR: ListCategoryProducts failed to resolve category %q: %v", categorySlug, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	ancestors, err := h.categories.CategoryAncestors(r.Context(), category.ID)
	if err != nil {
		log.Printf("ERROR: ListCategoryProducts failed to load ancestors of %d: %v", category.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category")
		return
	}

	products, err := h.products.ListActiveProducts(r.Context(), &category.ID)
	if err != nil {
		log.Printf("ERROR: ListCategoryProducts failed to load products of %d: %v", category.ID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve category products")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"category":    category,
		"breadcrumbs": ancestors,
		"products":    products,
	})
}

// ListCategoryDescendants returns the subtree below a category in
// depth-first order. With ?include_self=true the node itself leads the
// result.
func (h *HTTPHandler) ListCategoryDescendants(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || categoryID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}
	includeSelf := r.URL.Query().Get("include_self") == "true"

	descendants, err := h.categories.CategoryDescendants(r.Context(), categoryID, includeSelf)
	if err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
			return
		}
		log.Printf("ERROR: ListCategoryDescendants failed for ID %d: %v", categoryID, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, descendants)
}

// CategoryReparentInput defines the expected input for moving a
// category.
type CategoryReparentInput struct {
	ParentID int64 `json:"parent_id" validate:"required,gt=0"`
}

func (h *HTTPHandler) ReparentCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || categoryID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	var input CategoryReparentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.categories.ReparentCategory(r.Context(), categoryID, input.ParentID); err != nil {
		switch {
		case errors.Is(err, store.ErrCategoryCycle):
			respondWithError(w, http.StatusBadRequest, store.ErrCategoryCycle.Error())
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		default:
			log.Printf("ERROR: ReparentCategory store operation for ID %d failed: %v", categoryID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to move category")
		}
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Category moved"})
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(chi.URLParam(r, "categoryID"), 10, 64)
	if err != nil || categoryID <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	if err := h.categories.DeleteCategory(r.Context(), categoryID); err != nil {
		switch {
		case errors.Is(err, store.ErrCategoryNotFound):
			respondWithError(w, http.StatusNotFound, store.ErrCategoryNotFound.Error())
		case errors.Is(err, store.ErrCategoryInUse):
			respondWithError(w, http.StatusConflict, store.ErrCategoryInUse.Error())
		default:
			log.Printf("ERROR: DeleteCategory store operation for ID %d failed: %v", categoryID, err)
			respondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		}
		return
	}
	respondWithJSON(w, http.StatusNoContent, nil)
}
