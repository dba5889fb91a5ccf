package api

import (
	"encoding/json"
	"log"
	"net/http"

	"bookshop-service/internal/auth"
	"bookshop-service/internal/mail"
	"bookshop-service/internal/store"
	"bookshop-service/internal/token"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	customers  store.CustomerStorer
	addresses  store.AddressStorer
	categories store.CategoryStorer
	products   store.ProductStorer
	orders     store.OrderStorer

	tokens   *token.Generator
	sessions *auth.SessionManager
	mailer   mail.Mailer

	siteName string
	siteURL  string
	validate *validator.Validate
}

// Stores bundles the persistence interfaces the handler needs; the
// PostgresStore satisfies all of them.
type Stores struct {
	Customers  store.CustomerStorer
	Addresses  store.AddressStorer
	Categories store.CategoryStorer
	Products   store.ProductStorer
	Orders     store.OrderStorer
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(stores Stores, tokens *token.Generator, sessions *auth.SessionManager, mailer mail.Mailer, siteName, siteURL string) *HTTPHandler {
	return &HTTPHandler{
		customers:  stores.Customers,
		addresses:  stores.Addresses,
		categories: stores.Categories,
		products:   stores.Products,
		orders:     stores.Orders,
		tokens:     tokens,
		sessions:   sessions,
		mailer:     mailer,
		siteName:   siteName,
		siteURL:    siteURL,
		validate:   validator.New(),
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil { // Avoid writing empty body for 204 No Content
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
			http.Error(w, `{"error": "Internal server error during JSON encoding"}`, http.StatusInternalServerError)
		}
	}
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	requireAuth := h.sessions.RequireCustomer

	r.Route("/api/v1/account", func(r chi.Router) {
		r.Post("/registration", h.Register)
		r.Get("/activate/{uid}/{token}", h.Activate)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Post("/password_reset", h.PasswordResetRequest)
		r.Post("/password_reset_confirm/{uid}/{token}", h.PasswordResetConfirm)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Delete("/profile", h.DeleteAccount)
			r.Get("/orders", h.ListOrders)
			r.Get("/wishlist", h.ListWishlist)
			r.Post("/wishlist/{productID}", h.ToggleWishlist)

			r.Route("/addresses", func(r chi.Router) {
				r.Get("/", h.ListAddresses)
				r.Post("/", h.CreateAddress)
				r.Get("/{addressID}", h.GetAddress)
				r.Put("/{addressID}", h.UpdateAddress)
				r.Delete("/{addressID}", h.DeleteAddress)
				r.Post("/{addressID}/default", h.SetDefaultAddress)
			})
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{slug}", h.GetProductBySlug)
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
		r.Get("/{slug}/products", h.ListCategoryProducts)
		r.Get("/{categoryID}/descendants", h.ListCategoryDescendants)
		r.Put("/{categoryID}/parent", h.ReparentCategory)
		r.Delete("/{categoryID}", h.DeleteCategory)
	})
}
